package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"reviewflow-backend/models"
	"reviewflow-backend/testutil"
	"reviewflow-backend/utils"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingBus struct {
	mu        sync.Mutex
	published int
}

func (b *countingBus) Publish(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published++
	return nil
}

func (b *countingBus) Subscribe(context.Context, func()) error { return nil }

func newSettings(t *testing.T, env map[string]string, opts ...SettingsOption) (*SettingsService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	opts = append([]SettingsOption{
		WithClock(clock.Now),
		WithEnv(func(k string) string { return env[k] }),
	}, opts...)
	return NewSettingsService(testutil.DB(t), testutil.Logger(t), time.Minute, opts...), clock
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue("sk_live_abcdef1234"); got != "****1234" {
		t.Fatalf("want ****1234, got %s", got)
	}
	if got := MaskValue("abcd"); got != "****" {
		t.Fatalf("want ****, got %s", got)
	}
	if got := MaskValue(""); got != "****" {
		t.Fatalf("want ****, got %s", got)
	}
}

func TestSettingsResolutionOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t, map[string]string{KeyEmailFrom: "env@example.com"})

	if v, ok := s.Get(ctx, KeyEmailFrom); !ok || v != "env@example.com" {
		t.Fatalf("want environment value, got %q ok=%v", v, ok)
	}
	if _, ok := s.Get(ctx, KeyOperatorPhone); ok {
		t.Fatal("unset key resolved")
	}

	if _, err := s.Set(ctx, map[string]string{KeyEmailFrom: "db@example.com"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := s.Get(ctx, KeyEmailFrom); v != "db@example.com" {
		t.Fatalf("stored value must win and be visible right after a write, got %q", v)
	}
}

func TestSettingsCacheTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newSettings(t, nil)

	if _, err := s.Set(ctx, map[string]string{KeyAcuityUserID: "first"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := s.Get(ctx, KeyAcuityUserID); v != "first" {
		t.Fatalf("want first, got %q", v)
	}

	// A write that bypasses the service is invisible until the entry ages out.
	if err := s.db.Model(&models.AppSetting{}).Where("key = ?", KeyAcuityUserID).
		Update("value", "second").Error; err != nil {
		t.Fatalf("direct update: %v", err)
	}
	clock.Advance(30 * time.Second)
	if v, _ := s.Get(ctx, KeyAcuityUserID); v != "first" {
		t.Fatalf("fresh cache entry should be served, got %q", v)
	}
	clock.Advance(31 * time.Second)
	if v, _ := s.Get(ctx, KeyAcuityUserID); v != "second" {
		t.Fatalf("stale entry should be refreshed, got %q", v)
	}
}

func TestSettingsSetSkipsPlaceholdersAndHashesPassword(t *testing.T) {
	ctx := context.Background()
	bus := &countingBus{}
	s, _ := newSettings(t, nil, WithSettingsBus(bus))
	if _, err := s.Set(ctx, map[string]string{KeyResendAPIKey: "re_live_abcd1234"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	written, err := s.Set(ctx, map[string]string{
		KeyResendAPIKey:  "****1234",
		KeyAdminPassword: "hunter22",
		KeyEmailFrom:     "",
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(written) != 1 || written[0] != KeyAdminPassword {
		t.Fatalf("want only the password written, got %v", written)
	}
	if v, _ := s.Get(ctx, KeyResendAPIKey); v != "re_live_abcd1234" {
		t.Fatalf("masked placeholder overwrote the key: %q", v)
	}

	stored, _ := s.Get(ctx, KeyAdminPassword)
	if !utils.IsPasswordHash(stored) {
		t.Fatalf("password stored in cleartext: %q", stored)
	}
	if !utils.CheckPassword("hunter22", stored) {
		t.Fatal("stored hash does not verify")
	}
	if bus.published != 2 {
		t.Fatalf("want one invalidation per write, got %d", bus.published)
	}
}

func TestSettingsSetStoresSecretThatLooksMasked(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t, nil)

	// Nothing configured yet, so this cannot be an echoed mask.
	if _, err := s.Set(ctx, map[string]string{KeyResendAPIKey: "****1234"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := s.Get(ctx, KeyResendAPIKey); v != "****1234" {
		t.Fatalf("want the literal value stored, got %q", v)
	}

	// A different mask is a new value, not the placeholder for the current one.
	if _, err := s.Set(ctx, map[string]string{KeyResendAPIKey: "****abcd"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := s.Get(ctx, KeyResendAPIKey); v != "****abcd" {
		t.Fatalf("want the new value stored, got %q", v)
	}
}

func TestSettingsMasked(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t, map[string]string{KeyAcuityAPIKey: "acuity-secret-9876"})
	if _, err := s.Set(ctx, map[string]string{
		KeyResendAPIKey: "re_abcdef1234",
		KeyEmailFrom:    "ReviewFlow <hello@example.com>",
	}); err != nil {
		t.Fatalf("set: %v", err)
	}

	masked, err := s.Masked(ctx)
	if err != nil {
		t.Fatalf("masked: %v", err)
	}
	if m := masked[KeyResendAPIKey]; m.Value != "****1234" || !m.Masked || m.Source != "database" {
		t.Fatalf("unexpected resend entry %+v", m)
	}
	if m := masked[KeyEmailFrom]; m.Value != "ReviewFlow <hello@example.com>" || m.Masked {
		t.Fatalf("non-sensitive value should be shown, got %+v", m)
	}
	if m := masked[KeyAcuityAPIKey]; m.Value != "****9876" || m.Source != "environment" {
		t.Fatalf("env-only secret should be listed masked, got %+v", m)
	}
}

func TestSettingsConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t, map[string]string{KeyEmailFrom: "env@example.com"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Get(ctx, KeyEmailFrom)
		}()
		go func() {
			defer wg.Done()
			s.ClearCache()
		}()
	}
	wg.Wait()
}
