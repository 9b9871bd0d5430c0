package controllers

import (
	"errors"
	"net/http"

	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

// AnalyticsController serves the admin analytics and the public shared dashboard.
type AnalyticsController struct {
	Analytics *services.AnalyticsService
	Log       *utils.Logger
}

func parseRange(c *gin.Context) (services.AnalyticsFilter, bool) {
	var f services.AnalyticsFilter
	if raw := c.Query("from"); raw != "" {
		t, ok := utils.ParseDay(raw)
		if !ok {
			utils.RespondWithError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return f, false
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, ok := utils.ParseDay(raw)
		if !ok {
			utils.RespondWithError(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return f, false
		}
		f.To = &t
	}
	return f, true
}

// GetAnalytics handles GET /api/analytics?clientId&from&to
func (ac *AnalyticsController) GetAnalytics(c *gin.Context) {
	f, ok := parseRange(c)
	if !ok {
		return
	}
	clientID, err := optionalUUID(c.Query("clientId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid clientId")
		return
	}
	f.ClientID = clientID

	out, err := ac.Analytics.Admin(c.Request.Context(), f)
	if err != nil {
		ac.Log.Error("analytics failed", "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load analytics")
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetShared handles GET /api/shared/:shareToken
func (ac *AnalyticsController) GetShared(c *gin.Context) {
	f, ok := parseRange(c)
	if !ok {
		return
	}
	out, err := ac.Analytics.Shared(c.Request.Context(), c.Param("shareToken"), f)
	if errors.Is(err, services.ErrNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		ac.Log.Error("shared dashboard failed", "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, out)
}
