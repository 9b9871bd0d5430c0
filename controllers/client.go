package controllers

import (
	"errors"
	"net/http"
	"strings"

	"reviewflow-backend/models"
	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultBrandColor = "#2563EB"

// ClientController manages clients and their locations and providers.
type ClientController struct {
	DB  *gorm.DB
	Log *utils.Logger
}

type CreateClientInput struct {
	Name                     string  `json:"name" binding:"required"`
	Slug                     string  `json:"slug"`
	GooglePlaceID            string  `json:"google_place_id" binding:"required"`
	WebsiteURL               string  `json:"website_url" binding:"required"`
	ContactPageURL           string  `json:"contact_page_url"`
	BrandColor               string  `json:"brand_color"`
	LogoURL                  *string `json:"logo_url"`
	AcuityCalendarIDs        []int64 `json:"acuity_calendar_ids"`
	AcuityAppointmentTypeIDs []int64 `json:"acuity_appointment_type_ids"`
	EmailFromName            *string `json:"email_from_name"`
	AutoSendEnabled          bool    `json:"auto_send_enabled"`
}

// UpdateClientInput leaves nil fields untouched. The share token cannot be changed.
type UpdateClientInput struct {
	Name                     *string  `json:"name"`
	Slug                     *string  `json:"slug"`
	GooglePlaceID            *string  `json:"google_place_id"`
	WebsiteURL               *string  `json:"website_url"`
	ContactPageURL           *string  `json:"contact_page_url"`
	BrandColor               *string  `json:"brand_color"`
	LogoURL                  *string  `json:"logo_url"`
	IsActive                 *bool    `json:"is_active"`
	AcuityCalendarIDs        *[]int64 `json:"acuity_calendar_ids"`
	AcuityAppointmentTypeIDs *[]int64 `json:"acuity_appointment_type_ids"`
	EmailFromName            *string  `json:"email_from_name"`
	AutoSendEnabled          *bool    `json:"auto_send_enabled"`
}

func idList(ids []int64) datatypes.JSONSlice[int64] {
	if ids == nil {
		ids = []int64{}
	}
	return datatypes.JSONSlice[int64](ids)
}

func nilIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (cc *ClientController) slugTaken(s string, except uuid.UUID) (bool, error) {
	var n int64
	q := cc.DB.Model(&models.Client{}).Where("slug = ?", s)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// ListClients returns every client, newest first.
func (cc *ClientController) ListClients(c *gin.Context) {
	var clients []models.Client
	if err := cc.DB.Order("created_at DESC").Find(&clients).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve clients")
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (cc *ClientController) CreateClient(c *gin.Context) {
	var input CreateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing required fields: Client Name, Google Place ID, and Website URL.")
		return
	}

	clientSlug := slug.Make(services.FirstNonEmpty(input.Slug, input.Name))
	if clientSlug == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Could not derive a slug from the client name")
		return
	}
	brand := services.FirstNonEmpty(input.BrandColor, defaultBrandColor)
	if !utils.ValidateHexColor(brand) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid brand color")
		return
	}

	taken, err := cc.slugTaken(clientSlug, uuid.Nil)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if taken {
		utils.RespondWithError(c, http.StatusConflict, "This slug is already taken. Choose a different URL identifier.")
		return
	}

	website := strings.TrimRight(strings.TrimSpace(input.WebsiteURL), "/")
	shareToken := utils.NewShareToken()
	client := models.Client{
		Name:                     strings.TrimSpace(input.Name),
		Slug:                     clientSlug,
		GooglePlaceID:            strings.TrimSpace(input.GooglePlaceID),
		WebsiteURL:               website,
		ContactPageURL:           services.FirstNonEmpty(input.ContactPageURL, website+"/contact"),
		BrandColor:               brand,
		LogoURL:                  nilIfBlank(input.LogoURL),
		IsActive:                 true,
		ShareToken:               &shareToken,
		AcuityCalendarIDs:        idList(input.AcuityCalendarIDs),
		AcuityAppointmentTypeIDs: idList(input.AcuityAppointmentTypeIDs),
		EmailFromName:            nilIfBlank(input.EmailFromName),
		AutoSendEnabled:          input.AutoSendEnabled,
	}
	if err := cc.DB.Create(&client).Error; err != nil {
		cc.Log.Error("create client failed", "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create client")
		return
	}

	c.JSON(http.StatusCreated, client)
}

func (cc *ClientController) GetClient(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var client models.Client
	if err := cc.DB.Preload("Locations").First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Client not found")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (cc *ClientController) UpdateClient(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var input UpdateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var client models.Client
	if err := cc.DB.First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Client not found")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	updates := map[string]interface{}{}
	if input.Slug != nil {
		s := slug.Make(*input.Slug)
		if s == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid slug")
			return
		}
		taken, err := cc.slugTaken(s, id)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if taken {
			utils.RespondWithError(c, http.StatusConflict, "Slug already exists")
			return
		}
		updates["slug"] = s
	}
	if input.BrandColor != nil {
		if !utils.ValidateHexColor(*input.BrandColor) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid brand color")
			return
		}
		updates["brand_color"] = *input.BrandColor
	}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.GooglePlaceID != nil {
		updates["google_place_id"] = strings.TrimSpace(*input.GooglePlaceID)
	}
	if input.WebsiteURL != nil {
		updates["website_url"] = strings.TrimSpace(*input.WebsiteURL)
	}
	if input.ContactPageURL != nil {
		updates["contact_page_url"] = strings.TrimSpace(*input.ContactPageURL)
	}
	if input.LogoURL != nil {
		updates["logo_url"] = nilIfBlank(input.LogoURL)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.AcuityCalendarIDs != nil {
		updates["acuity_calendar_ids"] = idList(*input.AcuityCalendarIDs)
	}
	if input.AcuityAppointmentTypeIDs != nil {
		updates["acuity_appointment_type_ids"] = idList(*input.AcuityAppointmentTypeIDs)
	}
	if input.EmailFromName != nil {
		updates["email_from_name"] = nilIfBlank(input.EmailFromName)
	}
	if input.AutoSendEnabled != nil {
		updates["auto_send_enabled"] = *input.AutoSendEnabled
	}

	if len(updates) > 0 {
		if err := cc.DB.Model(&client).Updates(updates).Error; err != nil {
			cc.Log.Error("update client failed", "client_id", id, "error", err)
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update client")
			return
		}
	}
	if err := cc.DB.First(&client, "id = ?", id).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient removes the client and everything that belongs to it.
func (cc *ClientController) DeleteClient(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.First(&client, "id = ?", id).Error; err != nil {
			return err
		}
		requests := tx.Model(&models.ReviewRequest{}).Select("id").Where("client_id = ?", id)
		if err := tx.Where("review_request_id IN (?)", requests).Delete(&models.ClickEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("review_request_id IN (?)", requests).Delete(&models.EmailOpen{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.ReviewRequest{}, &models.SendBatch{}, &models.Patient{},
			&models.Location{}, &models.Provider{},
		} {
			if err := tx.Where("client_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&client).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		return
	}
	if err != nil {
		cc.Log.Error("delete client failed", "client_id", id, "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete client")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
