package controllers

import (
	"net/http"
	"strings"

	"reviewflow-backend/models"
	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProviderInput struct {
	Name          string `json:"name" binding:"required"`
	DisplayName   string `json:"display_name"`
	GooglePlaceID string `json:"google_place_id"`
	NPI           string `json:"npi"`
}

type ReplaceProvidersInput struct {
	Providers []ProviderInput `json:"providers" binding:"required,dive"`
}

// ListProviders returns the client's active providers by name.
func (cc *ClientController) ListProviders(c *gin.Context) {
	clientID, ok := cc.requireClient(c)
	if !ok {
		return
	}
	providers := []models.Provider{}
	if err := cc.DB.Where("client_id = ? AND is_active = ?", clientID, true).
		Order("name ASC").Find(&providers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve providers")
		return
	}
	c.JSON(http.StatusOK, providers)
}

func (cc *ClientController) ReplaceProviders(c *gin.Context) {
	clientID, ok := cc.requireClient(c)
	if !ok {
		return
	}
	var input ReplaceProvidersInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "providers array is required")
		return
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		existing := tx.Model(&models.Provider{}).Select("id").Where("client_id = ?", clientID)
		if err := tx.Model(&models.ReviewRequest{}).
			Where("provider_id IN (?)", existing).
			Update("provider_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", clientID).Delete(&models.Provider{}).Error; err != nil {
			return err
		}
		for _, p := range input.Providers {
			name := strings.TrimSpace(p.Name)
			provider := models.Provider{
				ClientID:      clientID,
				Name:          name,
				DisplayName:   services.FirstNonEmpty(p.DisplayName, name),
				GooglePlaceID: optionalString(p.GooglePlaceID),
				NPI:           optionalString(p.NPI),
				IsActive:      true,
			}
			if err := tx.Create(&provider).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		cc.Log.Error("replace providers failed", "client_id", clientID, "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save providers")
		return
	}

	cc.ListProviders(c)
}

func optionalString(s string) *string {
	return nilIfBlank(&s)
}
