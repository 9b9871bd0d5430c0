package controllers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

// 1x1 transparent GIF, 43 bytes.
var pixelGIF, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAIAAAP///wAAACH5BAEAAAAALAAAAAABAAEAAAICRAEAOw==")

// TrackingController serves the public redirect and open-pixel endpoints.
// Event logging runs on the background runner after the response is flushed.
type TrackingController struct {
	Reviews *services.ReviewService
	Runner  *services.BackgroundRunner
	HomeURL string
	Log     *utils.Logger
}

// Redirect handles GET /r/:token?s=1..5
func (tc *TrackingController) Redirect(c *gin.Context) {
	rating, err := services.ParseRating(c.Query("s"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid rating")
		return
	}

	rr, err := tc.Reviews.FindByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			tc.Log.Warn("redirect lookup failed", "error", err)
		}
		c.Redirect(http.StatusFound, tc.HomeURL)
		return
	}

	destination := services.ResolveDestination(rr, rating, tc.HomeURL)
	c.Redirect(http.StatusFound, destination)
	c.Writer.Flush()

	click := services.ClickInput{
		RequestID:   rr.ID,
		Rating:      rating,
		Destination: destination,
		UserAgent:   c.Request.UserAgent(),
		IPAddress:   utils.ClientIP(c.Request),
	}
	tc.Runner.Go("record-click", func(ctx context.Context) error {
		return tc.Reviews.RecordClick(ctx, click)
	})
}

// Pixel handles GET /track/open/:token. The image is returned for any token.
func (tc *TrackingController) Pixel(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Data(http.StatusOK, "image/gif", pixelGIF)
	c.Writer.Flush()

	token := c.Param("token")
	tc.Runner.Go("record-open", func(ctx context.Context) error {
		return tc.Reviews.RecordOpen(ctx, token)
	})
}
