package controllers

import (
	"errors"
	"net/http"
	"strings"

	"reviewflow-backend/models"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationInput struct {
	Name              string  `json:"name" binding:"required"`
	GooglePlaceID     string  `json:"google_place_id" binding:"required"`
	ContactPageURL    string  `json:"contact_page_url" binding:"required"`
	AcuityCalendarIDs []int64 `json:"acuity_calendar_ids"`
	IsDefault         bool    `json:"is_default"`
}

type ReplaceLocationsInput struct {
	Locations []LocationInput `json:"locations" binding:"required,dive"`
}

var errLocationMissing = errors.New("location missing")

func (cc *ClientController) requireClient(c *gin.Context) (uuid.UUID, bool) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	var n int64
	if err := cc.DB.Model(&models.Client{}).Where("id = ?", id).Count(&n).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return uuid.Nil, false
	}
	if n == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		return uuid.Nil, false
	}
	return id, true
}

func (in LocationInput) toModel(clientID uuid.UUID) models.Location {
	return models.Location{
		ClientID:          clientID,
		Name:              strings.TrimSpace(in.Name),
		GooglePlaceID:     strings.TrimSpace(in.GooglePlaceID),
		ContactPageURL:    strings.TrimSpace(in.ContactPageURL),
		AcuityCalendarIDs: idList(in.AcuityCalendarIDs),
		IsDefault:         in.IsDefault,
	}
}

func (cc *ClientController) ListLocations(c *gin.Context) {
	clientID, ok := cc.requireClient(c)
	if !ok {
		return
	}
	locations := []models.Location{}
	if err := cc.DB.Where("client_id = ?", clientID).Order("created_at ASC").Find(&locations).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve locations")
		return
	}
	c.JSON(http.StatusOK, locations)
}

// CreateLocation adds one location. A new default clears the previous one.
func (cc *ClientController) CreateLocation(c *gin.Context) {
	clientID, ok := cc.requireClient(c)
	if !ok {
		return
	}
	var input LocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "name, google_place_id, and contact_page_url are required")
		return
	}

	location := input.toModel(clientID)
	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if location.IsDefault {
			if err := tx.Model(&models.Location{}).
				Where("client_id = ?", clientID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&location).Error
	})
	if err != nil {
		cc.Log.Error("create location failed", "client_id", clientID, "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create location")
		return
	}
	c.JSON(http.StatusCreated, location)
}

// ReplaceLocations swaps the client's whole location set in one transaction.
func (cc *ClientController) ReplaceLocations(c *gin.Context) {
	clientID, ok := cc.requireClient(c)
	if !ok {
		return
	}
	var input ReplaceLocationsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "locations array is required")
		return
	}

	defaults := 0
	for _, l := range input.Locations {
		if l.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		utils.RespondWithError(c, http.StatusConflict, "Only one location can be the default")
		return
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		existing := tx.Model(&models.Location{}).Select("id").Where("client_id = ?", clientID)
		if err := tx.Model(&models.ReviewRequest{}).
			Where("location_id IN (?)", existing).
			Update("location_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", clientID).Delete(&models.Location{}).Error; err != nil {
			return err
		}
		for _, l := range input.Locations {
			loc := l.toModel(clientID)
			if err := tx.Create(&loc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		cc.Log.Error("replace locations failed", "client_id", clientID, "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save locations")
		return
	}

	cc.ListLocations(c)
}

// DeleteLocation handles DELETE /api/clients/:id/locations?locationId=...
func (cc *ClientController) DeleteLocation(c *gin.Context) {
	clientID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	raw := c.Query("locationId")
	if raw == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "locationId query param is required")
		return
	}
	locationID, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid locationId")
		return
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ReviewRequest{}).
			Where("location_id = ? AND client_id = ?", locationID, clientID).
			Update("location_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND client_id = ?", locationID, clientID).Delete(&models.Location{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errLocationMissing
		}
		return nil
	})
	if errors.Is(err, errLocationMissing) {
		utils.RespondWithError(c, http.StatusNotFound, "Location not found")
		return
	}
	if err != nil {
		cc.Log.Error("delete location failed", "location_id", locationID, "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete location")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
