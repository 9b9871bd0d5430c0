package controllers

import (
	"context"
	"errors"
	"net/http"

	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

// CalendarLister is the scheduler lookup behind the calendar picker.
type CalendarLister interface {
	Calendars(ctx context.Context) ([]services.Calendar, error)
}

type AutomationController struct {
	Automation *services.AutomationService
	Calendars  CalendarLister
	Log        *utils.Logger
}

// RunWeekly handles the bearer-gated automation trigger. The run outlives a
// dropped connection so no batch is left half sent.
func (ac *AutomationController) RunWeekly(c *gin.Context) {
	result, err := ac.Automation.RunWeekly(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		ac.Log.Error("weekly automation failed", "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Weekly automation failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook acknowledges scheduler callbacks. Sends still happen in the weekly run.
func (ac *AutomationController) Webhook(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid payload")
		return
	}
	ac.Log.Info("webhook received", "payload", payload)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListCalendars returns the scheduler's calendars so a client's calendar ids
// can be picked instead of typed.
func (ac *AutomationController) ListCalendars(c *gin.Context) {
	calendars, err := ac.Calendars.Calendars(c.Request.Context())
	if errors.Is(err, services.ErrAcuityNotConfigured) {
		utils.RespondWithError(c, http.StatusBadRequest, "Acuity is not configured")
		return
	}
	if err != nil {
		ac.Log.Warn("calendar lookup failed", "error", err)
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to load calendars")
		return
	}
	if calendars == nil {
		calendars = []services.Calendar{}
	}
	c.JSON(http.StatusOK, calendars)
}
