package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Env            string
	DatabaseURL    string
	AppURL         string
	HomeURL        string
	JWTSecret      string
	JWTExpiry      time.Duration
	CronSecret     string
	WebhookSecret  string
	CORSOrigins    []string
	RedisURL       string
	SettingsTTL    time.Duration
	AutomationCron string

	EmailTimeout      time.Duration
	AcuityBaseURL     string
	AcuityTimeout     time.Duration
	ClientRunTimeout  time.Duration
	BackgroundTimeout time.Duration
}

// Load reads the optional .env file and builds the runtime configuration.
func Load() *Config {
	_ = godotenv.Load()

	appURL := strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/")

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("APP_ENV", "development"),
		DatabaseURL:    os.Getenv("DB_URL"),
		AppURL:         appURL,
		HomeURL:        getEnv("HOME_URL", appURL+"/"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiry:      time.Duration(parseInt(getEnv("JWT_EXPIRY_HOURS", "168"), 168)) * time.Hour,
		CronSecret:     os.Getenv("CRON_SECRET"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RedisURL:       os.Getenv("REDIS_URL"),
		SettingsTTL:    parseDuration(getEnv("SETTINGS_CACHE_TTL", "60s"), time.Minute),
		AutomationCron: getEnvAllowEmpty("AUTOMATION_SCHEDULE", "0 9 * * 1"),

		EmailTimeout:      parseDuration(getEnv("EMAIL_TIMEOUT", "15s"), 15*time.Second),
		AcuityBaseURL:     getEnv("ACUITY_BASE_URL", "https://acuityscheduling.com/api/v1"),
		AcuityTimeout:     parseDuration(getEnv("ACUITY_TIMEOUT", "20s"), 20*time.Second),
		ClientRunTimeout:  parseDuration(getEnv("CLIENT_RUN_TIMEOUT", "5m"), 5*time.Minute),
		BackgroundTimeout: parseDuration(getEnv("BACKGROUND_TASK_TIMEOUT", "10s"), 10*time.Second),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty lets an explicitly empty variable switch a feature off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
