package routes

import (
	"reviewflow-backend/config"
	"reviewflow-backend/controllers"
	"reviewflow-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Config     *config.Config
	Log        *utils.Logger
	Tracking   *controllers.TrackingController
	Send       *controllers.SendController
	Clients    *controllers.ClientController
	Patients   *controllers.PatientController
	Settings   *controllers.SettingsController
	Automation *controllers.AutomationController
	Analytics  *controllers.AnalyticsController
	Auth       *controllers.AuthController
}

func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Webhook-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger(h.Log))

	r.GET("/health", controllers.Health)

	// Public tracking links embedded in emails
	r.GET("/r/:token", h.Tracking.Redirect)
	r.GET("/track/open/:token", h.Tracking.Pixel)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", utils.AuthMiddleware(h.Config.JWTSecret), h.Auth.Me)
	}

	api.GET("/shared/:shareToken", h.Analytics.GetShared)

	api.GET("/cron/weekly-review",
		utils.SecretMiddleware(h.Config.CronSecret, utils.BearerFromRequest),
		h.Automation.RunWeekly)
	api.POST("/webhook",
		utils.SecretMiddleware(h.Config.WebhookSecret, func(c *gin.Context) string {
			return c.GetHeader("x-webhook-secret")
		}),
		h.Automation.Webhook)

	admin := api.Group("")
	admin.Use(utils.AuthMiddleware(h.Config.JWTSecret))
	{
		admin.POST("/send-review", h.Send.SendReview)
		admin.POST("/send-test", h.Send.SendTest)
		admin.POST("/send-bulk", h.Send.SendBulk)
		admin.POST("/patients/check-first-time", h.Patients.CheckFirstTime)

		clients := admin.Group("/clients")
		{
			clients.GET("", h.Clients.ListClients)
			clients.POST("", h.Clients.CreateClient)
			clients.GET("/:id", h.Clients.GetClient)
			clients.PUT("/:id", h.Clients.UpdateClient)
			clients.DELETE("/:id", h.Clients.DeleteClient)

			clients.GET("/:id/locations", h.Clients.ListLocations)
			clients.POST("/:id/locations", h.Clients.CreateLocation)
			clients.PUT("/:id/locations", h.Clients.ReplaceLocations)
			clients.DELETE("/:id/locations", h.Clients.DeleteLocation)

			clients.GET("/:id/providers", h.Clients.ListProviders)
			clients.PUT("/:id/providers", h.Clients.ReplaceProviders)
		}

		admin.GET("/acuity/calendars", h.Automation.ListCalendars)

		admin.GET("/analytics", h.Analytics.GetAnalytics)

		admin.GET("/settings", h.Settings.GetSettings)
		admin.POST("/settings", h.Settings.UpdateSettings)
	}

	return r
}
