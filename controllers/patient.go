package controllers

import (
	"net/http"

	"reviewflow-backend/models"
	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PatientController struct {
	Patients *services.PatientService
	Log      *utils.Logger
}

type CheckFirstTimeInput struct {
	ClientID string               `json:"clientId" binding:"required"`
	Patients []services.Recipient `json:"patients" binding:"required"`
}

// CheckFirstTime registers each patient and splits them into first-time and
// returning. Registration is the check, so a second call reports all as existing.
func (pc *PatientController) CheckFirstTime(c *gin.Context) {
	var input CheckFirstTimeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "clientId and patients array are required")
		return
	}
	clientID, err := uuid.Parse(input.ClientID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid clientId")
		return
	}

	res, err := pc.Patients.Partition(c.Request.Context(), clientID, input.Patients, models.SourceCSV)
	if err != nil {
		pc.Log.Error("first-time check failed", "client_id", clientID, "error", err)
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
