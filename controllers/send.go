package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"reviewflow-backend/models"
	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SendController struct {
	Reviews  *services.ReviewService
	Patients *services.PatientService
	Log      *utils.Logger
}

type SendReviewInput struct {
	ClientID      string `json:"clientId" binding:"required"`
	CustomerName  string `json:"customerName" binding:"required"`
	CustomerEmail string `json:"customerEmail" binding:"required"`
	LocationID    string `json:"locationId"`
	ProviderID    string `json:"providerId"`
	Source        string `json:"source"`
}

type SendTestInput struct {
	TestEmail string `json:"testEmail" binding:"required"`
	ClientID  string `json:"clientId"`
}

// SendReview handles POST /api/send-review
func (sc *SendController) SendReview(c *gin.Context) {
	var input SendReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	clientID, err := uuid.Parse(input.ClientID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid clientId")
		return
	}
	locationID, err := optionalUUID(input.LocationID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid locationId")
		return
	}
	providerID, err := optionalUUID(input.ProviderID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid providerId")
		return
	}

	rr, err := sc.Reviews.Send(c.Request.Context(), services.SendInput{
		ClientID:      clientID,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		LocationID:    locationID,
		ProviderID:    providerID,
		Source:        input.Source,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "requestId": rr.ID})
}

// SendTest handles POST /api/send-test
func (sc *SendController) SendTest(c *gin.Context) {
	var input SendTestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Please enter an email address to send the test to.")
		return
	}
	clientID, err := optionalUUID(input.ClientID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid clientId")
		return
	}

	rr, err := sc.Reviews.SendTest(c.Request.Context(), input.TestEmail, clientID)
	if errors.Is(err, services.ErrClientNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "No active clients found. Create a client before sending a test.")
		return
	}
	if errors.Is(err, services.ErrSendFailed) {
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to send test email. Verify your email configuration in Settings.")
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "requestId": rr.ID})
}

type BulkSendSummary struct {
	Total           int                    `json:"total"`
	Invalid         int                    `json:"invalid"`
	SkippedExisting int                    `json:"skippedExisting"`
	Sent            int                    `json:"sent"`
	Failed          int                    `json:"failed"`
	Mapping         services.ColumnMapping `json:"mapping"`
}

// SendBulk handles POST /api/send-bulk as multipart form data with a CSV file.
func (sc *SendController) SendBulk(c *gin.Context) {
	ctx := c.Request.Context()

	clientID, err := uuid.Parse(c.PostForm("clientId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "clientId is required")
		return
	}
	locationID, err := optionalUUID(c.PostForm("locationId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid locationId")
		return
	}
	client, err := sc.Reviews.LoadClient(ctx, clientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "CSV file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer f.Close()

	headers, rows, err := services.ParseCSV(f)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid CSV: "+err.Error())
		return
	}

	mapping := services.ColumnMapping{
		NameColumn:      c.PostForm("nameColumn"),
		FirstNameColumn: c.PostForm("firstNameColumn"),
		LastNameColumn:  c.PostForm("lastNameColumn"),
		EmailColumn:     c.PostForm("emailColumn"),
		Confidence:      services.ConfidenceExact,
	}
	manual := mapping.NameColumn != "" || mapping.FirstNameColumn != "" ||
		mapping.LastNameColumn != "" || mapping.EmailColumn != ""
	if !manual {
		mapping = services.DetectColumns(headers)
	}
	if !mapping.Usable() {
		if manual {
			utils.RespondWithError(c, http.StatusBadRequest, "Column mapping needs a name and an email column")
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Could not detect name and email columns. Map them manually.",
			"headers": headers,
			"mapping": mapping,
		})
		return
	}

	recipients, dropped := services.MapRows(rows, mapping)
	summary := BulkSendSummary{Total: len(rows), Invalid: dropped, Mapping: mapping}

	valid := recipients[:0]
	for _, r := range recipients {
		if !utils.ValidateEmail(r.Email) {
			summary.Invalid++
			continue
		}
		valid = append(valid, r)
	}

	firstTimeOnly, _ := strconv.ParseBool(c.PostForm("firstTimeOnly"))
	if firstTimeOnly {
		split, err := sc.Patients.Partition(ctx, client.ID, valid, models.SourceCSV)
		if err != nil {
			sc.Log.Error("first-time check failed", "client_id", client.ID, "error", err)
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to check patients")
			return
		}
		summary.SkippedExisting = len(split.Existing)
		valid = split.FirstTime
	}

	for _, r := range valid {
		_, err := sc.Reviews.Send(ctx, services.SendInput{
			ClientID:      client.ID,
			CustomerName:  r.Name,
			CustomerEmail: r.Email,
			LocationID:    locationID,
			Source:        models.SourceCSV,
		})
		if err != nil {
			sc.Log.Warn("bulk send row failed", "client_id", client.ID, "error", err)
			summary.Failed++
			continue
		}
		summary.Sent++
	}

	sc.Log.Info("bulk send finished", "client_id", client.ID, "sent", summary.Sent, "failed", summary.Failed)
	c.JSON(http.StatusOK, summary)
}
