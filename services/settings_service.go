package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"reviewflow-backend/models"
	"reviewflow-backend/utils"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys understood by the service.
const (
	KeyResendAPIKey     = "RESEND_API_KEY"
	KeyEmailFrom        = "EMAIL_FROM"
	KeyAdminPassword    = "ADMIN_PASSWORD"
	KeyAcuityEnabled    = "ACUITY_ENABLED"
	KeyAcuityUserID     = "ACUITY_USER_ID"
	KeyAcuityAPIKey     = "ACUITY_API_KEY"
	KeyTwilioAccountSID = "TWILIO_ACCOUNT_SID"
	KeyTwilioAuthToken  = "TWILIO_AUTH_TOKEN"
	KeyTwilioFrom       = "TWILIO_PHONE_NUMBER"
	KeyOperatorPhone    = "OPERATOR_PHONE"
)

const maskPrefix = "****"

var sensitiveKeys = map[string]bool{
	KeyResendAPIKey:    true,
	KeyAcuityAPIKey:    true,
	KeyAdminPassword:   true,
	KeyTwilioAuthToken: true,
}

var knownKeys = []string{
	KeyResendAPIKey, KeyEmailFrom, KeyAdminPassword,
	KeyAcuityEnabled, KeyAcuityUserID, KeyAcuityAPIKey,
	KeyTwilioAccountSID, KeyTwilioAuthToken, KeyTwilioFrom, KeyOperatorPhone,
}

func IsSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}

// MaskValue hides all but the last four characters of a secret.
func MaskValue(value string) string {
	if len(value) <= 4 {
		return maskPrefix
	}
	return maskPrefix + value[len(value)-4:]
}

// isMaskedPlaceholder reports whether value is exactly the mask the read
// surface shows for key's current value.
func (s *SettingsService) isMaskedPlaceholder(ctx context.Context, key, value string) bool {
	if !IsSensitiveKey(key) {
		return false
	}
	current, ok := s.Get(ctx, key)
	return ok && value == MaskValue(current)
}

// SettingsResolver is the read side other services depend on.
type SettingsResolver interface {
	Get(ctx context.Context, key string) (string, bool)
}

// SettingsBus fans cache invalidations out to other instances.
type SettingsBus interface {
	Publish(ctx context.Context) error
	Subscribe(ctx context.Context, onInvalidate func()) error
}

type MaskedSetting struct {
	Value      string `json:"value"`
	Configured bool   `json:"configured"`
	Masked     bool   `json:"masked"`
	Source     string `json:"source"`
}

type settingEntry struct {
	value     string
	fetchedAt time.Time
}

// SettingsService resolves configuration from a TTL cache, then the
// app_settings table, then the environment.
type SettingsService struct {
	db    *gorm.DB
	log   *utils.Logger
	cache *gocache.Cache
	ttl   time.Duration
	bus   SettingsBus

	now func() time.Time
	env func(string) string
}

type SettingsOption func(*SettingsService)

func WithClock(now func() time.Time) SettingsOption {
	return func(s *SettingsService) { s.now = now }
}

func WithEnv(env func(string) string) SettingsOption {
	return func(s *SettingsService) { s.env = env }
}

func WithSettingsBus(bus SettingsBus) SettingsOption {
	return func(s *SettingsService) { s.bus = bus }
}

func NewSettingsService(db *gorm.DB, log *utils.Logger, ttl time.Duration, opts ...SettingsOption) *SettingsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	s := &SettingsService{
		db:    db,
		log:   log.With("service", "SettingsService"),
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
		now:   time.Now,
		env:   os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen subscribes to remote invalidations until ctx is cancelled.
func (s *SettingsService) Listen(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(ctx, s.ClearCache)
}

func (s *SettingsService) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := s.cached(key); ok {
		return v, true
	}

	var row models.AppSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	switch {
	case err == nil && row.Value != "":
		s.remember(key, row.Value)
		return row.Value, true
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		s.log.Warn("settings lookup failed, using environment", "key", key, "error", err)
	}

	if v := s.env(key); v != "" {
		s.remember(key, v)
		return v, true
	}
	return "", false
}

// GetOr returns the resolved value or def.
func (s *SettingsService) GetOr(ctx context.Context, key, def string) string {
	if v, ok := s.Get(ctx, key); ok {
		return v
	}
	return def
}

// All returns every stored row and refreshes the cache with them.
func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	var rows []models.AppSetting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
		s.remember(row.Key, row.Value)
	}
	return out, nil
}

// Masked lists stored settings plus known keys configured only in the
// environment. Sensitive values are never returned in cleartext.
func (s *SettingsService) Masked(ctx context.Context) (map[string]MaskedSetting, error) {
	stored, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]MaskedSetting, len(stored))
	add := func(key, value, source string) {
		m := MaskedSetting{Value: value, Configured: true, Source: source}
		if IsSensitiveKey(key) {
			m.Value = MaskValue(value)
			m.Masked = true
		}
		out[key] = m
	}
	for k, v := range stored {
		add(k, v, "database")
	}
	for _, k := range knownKeys {
		if _, ok := out[k]; ok {
			continue
		}
		if v := s.env(k); v != "" {
			add(k, v, "environment")
		}
	}
	return out, nil
}

// Set persists the non-empty, non-placeholder values and clears the cache.
// It returns the keys that were written.
func (s *SettingsService) Set(ctx context.Context, values map[string]string) ([]string, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	unchanged := make(map[string]bool)
	for _, key := range keys {
		if s.isMaskedPlaceholder(ctx, key, values[key]) {
			unchanged[key] = true
		}
	}

	var written []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			value := values[key]
			if strings.TrimSpace(key) == "" || value == "" || unchanged[key] {
				continue
			}
			if key == KeyAdminPassword && !utils.IsPasswordHash(value) {
				hashed, err := utils.HashPassword(value)
				if err != nil {
					return fmt.Errorf("hash admin password: %w", err)
				}
				value = hashed
			}
			row := models.AppSetting{Key: key, Value: value, UpdatedAt: s.now()}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert %s: %w", key, err)
			}
			written = append(written, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ClearCache()
	if s.bus != nil {
		if err := s.bus.Publish(ctx); err != nil {
			s.log.Warn("settings invalidation publish failed", "error", err)
		}
	}
	return written, nil
}

// ClearCache drops every cached entry.
func (s *SettingsService) ClearCache() {
	s.cache.Flush()
}

func (s *SettingsService) cached(key string) (string, bool) {
	raw, ok := s.cache.Get(key)
	if !ok {
		return "", false
	}
	entry := raw.(settingEntry)
	if s.now().Sub(entry.fetchedAt) >= s.ttl {
		return "", false
	}
	return entry.value, true
}

func (s *SettingsService) remember(key, value string) {
	s.cache.Set(key, settingEntry{value: value, fetchedAt: s.now()}, s.ttl)
}
