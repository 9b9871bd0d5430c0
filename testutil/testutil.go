package testutil

import (
	"testing"
	"time"

	"reviewflow-backend/models"
	"reviewflow-backend/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB opens a private in-memory SQLite database with every model migrated.
// A single connection keeps concurrent callers serialized like row locks would.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func Logger(t *testing.T) *utils.Logger {
	t.Helper()
	log, err := utils.NewLogger("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type ClientOption func(*models.Client)

func WithPlaceID(id string) ClientOption {
	return func(c *models.Client) { c.GooglePlaceID = id }
}

func WithCalendars(ids ...int64) ClientOption {
	return func(c *models.Client) {
		c.AcuityCalendarIDs = datatypes.JSONSlice[int64](ids)
		c.AutoSendEnabled = true
	}
}

func WithShareToken(token string) ClientOption {
	return func(c *models.Client) { c.ShareToken = &token }
}

func SeedClient(t *testing.T, db *gorm.DB, name string, opts ...ClientOption) *models.Client {
	t.Helper()
	c := &models.Client{
		Name:           name,
		Slug:           uuid.NewString(),
		GooglePlaceID:  "client-place",
		WebsiteURL:     "https://example.com",
		ContactPageURL: "https://example.com/contact",
		BrandColor:     "#2563EB",
		IsActive:       true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func SeedLocation(t *testing.T, db *gorm.DB, clientID uuid.UUID, placeID, contactURL string, calendars ...int64) *models.Location {
	t.Helper()
	l := &models.Location{
		ClientID:          clientID,
		Name:              "Location " + placeID,
		GooglePlaceID:     placeID,
		ContactPageURL:    contactURL,
		AcuityCalendarIDs: datatypes.JSONSlice[int64](calendars),
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return l
}

func SeedProvider(t *testing.T, db *gorm.DB, clientID uuid.UUID, placeID string) *models.Provider {
	t.Helper()
	p := &models.Provider{
		ClientID:    clientID,
		Name:        "Dr. Provider",
		DisplayName: "Dr. Provider",
		IsActive:    true,
	}
	if placeID != "" {
		p.GooglePlaceID = &placeID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	return p
}

// SeedRequest inserts a request in the given status with sent_at set for
// anything past pending.
func SeedRequest(t *testing.T, db *gorm.DB, clientID uuid.UUID, status string, locationID, providerID *uuid.UUID) *models.ReviewRequest {
	t.Helper()
	rr := &models.ReviewRequest{
		ClientID:      clientID,
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Token:         utils.NewRequestToken(),
		Status:        status,
		LocationID:    locationID,
		ProviderID:    providerID,
		Source:        models.SourceManual,
	}
	if status != models.StatusPending {
		now := time.Now()
		rr.SentAt = &now
	}
	if err := db.Create(rr).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return rr
}

// Reload fetches a request by id.
func Reload(t *testing.T, db *gorm.DB, id uuid.UUID) models.ReviewRequest {
	t.Helper()
	var rr models.ReviewRequest
	if err := db.First(&rr, "id = ?", id).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	return rr
}

func Count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
