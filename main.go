package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewflow-backend/config"
	"reviewflow-backend/controllers"
	"reviewflow-backend/routes"
	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	log, err := utils.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = utils.GenerateSecret()
		log.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}

	db, err := config.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var settingsOpts []services.SettingsOption
	if cfg.RedisURL != "" {
		bus, err := services.NewRedisSettingsBus(log, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, settings cache stays local", "error", err)
		} else {
			settingsOpts = append(settingsOpts, services.WithSettingsBus(bus))
		}
	}
	settings := services.NewSettingsService(db, log, cfg.SettingsTTL, settingsOpts...)
	if err := settings.Listen(ctx); err != nil {
		log.Warn("settings invalidation listener failed", "error", err)
	}

	runner := services.NewBackgroundRunner(log, cfg.BackgroundTimeout)
	mailer := services.NewResendMailer(settings, log, cfg.EmailTimeout)
	patients := services.NewPatientService(db, log)
	reviews := services.NewReviewService(db, log, mailer, settings, patients, cfg.AppURL)
	acuity := services.NewAcuityClient(settings, log, cfg.AcuityBaseURL, cfg.AcuityTimeout)
	automation := services.NewAutomationService(db, log, acuity, reviews, patients, cfg.ClientRunTimeout)
	automation.SetNotifier(services.NewOperatorNotifier(services.NewTwilioSMS(settings, log), settings, log))
	analytics := services.NewAnalyticsService(db, log)

	var scheduler *services.Scheduler
	if cfg.AutomationCron != "" {
		scheduler, err = services.NewScheduler(cfg.AutomationCron, automation, log)
		if err != nil {
			log.Fatal("scheduler setup failed", "error", err)
		}
		scheduler.Start()
	}

	r := routes.SetupRouter(routes.Handlers{
		Config:     cfg,
		Log:        log,
		Tracking:   &controllers.TrackingController{Reviews: reviews, Runner: runner, HomeURL: cfg.HomeURL, Log: log},
		Send:       &controllers.SendController{Reviews: reviews, Patients: patients, Log: log},
		Clients:    &controllers.ClientController{DB: db, Log: log},
		Patients:   &controllers.PatientController{Patients: patients, Log: log},
		Settings:   &controllers.SettingsController{Settings: settings, Log: log},
		Automation: &controllers.AutomationController{Automation: automation, Calendars: acuity, Log: log},
		Analytics:  &controllers.AnalyticsController{Analytics: analytics, Log: log},
		Auth: &controllers.AuthController{
			Settings:     settings,
			JWTSecret:    cfg.JWTSecret,
			Expiry:       cfg.JWTExpiry,
			SecureCookie: cfg.IsProduction(),
			Log:          log,
		},
	})
	printRoutes(log, r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	if err := runner.Wait(shutdownCtx); err != nil {
		log.Warn("background tasks abandoned", "error", err)
	}
}

func printRoutes(log *utils.Logger, r *gin.Engine) {
	for _, route := range r.Routes() {
		log.Debug("route", "method", route.Method, "path", route.Path)
	}
}
