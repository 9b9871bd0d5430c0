package controllers

import (
	"net/http"

	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

type SettingsController struct {
	Settings *services.SettingsService
	Log      *utils.Logger
}

type UpdateSettingsInput struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// GetSettings lists configured keys with sensitive values masked.
func (sc *SettingsController) GetSettings(c *gin.Context) {
	masked, err := sc.Settings.Masked(c.Request.Context())
	if err != nil {
		sc.Log.Error("load settings failed", "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, masked)
}

// UpdateSettings upserts the submitted values. Masked placeholders echoed
// back from GetSettings are left unchanged.
func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var input UpdateSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "settings object required")
		return
	}

	written, err := sc.Settings.Set(c.Request.Context(), input.Settings)
	if err != nil {
		sc.Log.Error("save settings failed", "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	sc.Log.Info("settings updated", "keys", written)

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": written})
}
