package services

import (
	"context"
	"errors"
	"testing"

	"reviewflow-backend/models"
	"reviewflow-backend/testutil"
)

func TestPercent(t *testing.T) {
	tests := []struct{ part, whole, want int }{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.part, tt.whole); got != tt.want {
			t.Fatalf("Percent(%d, %d): want %d, got %d", tt.part, tt.whole, tt.want, got)
		}
	}
}

func seedClicked(t *testing.T, f reviewFixture, client *models.Client, rating int) *models.ReviewRequest {
	t.Helper()
	rr := testutil.SeedRequest(t, f.db, client.ID, models.StatusSent, nil, nil)
	if err := f.reviews.RecordOpen(context.Background(), rr.Token); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.reviews.RecordClick(context.Background(), ClickInput{RequestID: rr.ID, Rating: rating, Destination: "https://example.com"}); err != nil {
		t.Fatalf("click: %v", err)
	}
	return rr
}

func TestAdminAnalytics(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	acme := testutil.SeedClient(t, f.db, "Acme Dental")
	other := testutil.SeedClient(t, f.db, "Other Clinic")

	seedClicked(t, f, acme, 5)
	seedClicked(t, f, acme, 4)
	testutil.SeedRequest(t, f.db, acme.ID, models.StatusSent, nil, nil)
	testutil.SeedRequest(t, f.db, acme.ID, models.StatusPending, nil, nil)
	seedClicked(t, f, other, 1)

	svc := NewAnalyticsService(f.db, testutil.Logger(t))

	all, err := svc.Admin(ctx, AnalyticsFilter{})
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if all.TotalRequests != 5 || all.TotalSent != 4 || all.TotalClicked != 3 || all.TotalOpened != 3 {
		t.Fatalf("unexpected totals %+v", all)
	}
	if all.Distribution != [5]int{1, 0, 0, 1, 1} {
		t.Fatalf("unexpected distribution %v", all.Distribution)
	}
	if all.AvgRating == nil || *all.AvgRating != 3.3 {
		t.Fatalf("want average 3.3, got %v", all.AvgRating)
	}
	if len(all.Clicks) != 3 {
		t.Fatalf("want 3 clicks, got %d", len(all.Clicks))
	}
	if len(all.LocationBreakdown) != 0 {
		t.Fatal("location breakdown is only computed for a single client")
	}

	one, err := svc.Admin(ctx, AnalyticsFilter{ClientID: &acme.ID})
	if err != nil {
		t.Fatalf("admin by client: %v", err)
	}
	if one.TotalSent != 3 || one.TotalClicked != 2 || one.ClickRate != 67 || one.FiveStarRate != 50 {
		t.Fatalf("unexpected client stats %+v", one)
	}
	if one.SourceBreakdown[models.SourceManual] != 4 {
		t.Fatalf("unexpected source breakdown %v", one.SourceBreakdown)
	}
	if stats := one.LocationBreakdown["default"]; stats.Sent != 3 || stats.Clicked != 2 || stats.Opened != 2 {
		t.Fatalf("unexpected default location stats %+v", stats)
	}
	for _, c := range one.Clicks {
		if c.ClientName != "Acme Dental" {
			t.Fatalf("click from another client leaked: %+v", c)
		}
	}
}

func TestAdminAnalyticsEmpty(t *testing.T) {
	f := newReviewFixture(t)
	out, err := NewAnalyticsService(f.db, testutil.Logger(t)).Admin(context.Background(), AnalyticsFilter{})
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if out.AvgRating != nil || out.ClickRate != 0 || out.Clicks == nil {
		t.Fatalf("unexpected empty analytics %+v", out)
	}
}

func TestSharedDashboard(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, f.db, "Acme Dental", testutil.WithShareToken("share-abc"))
	seedClicked(t, f, client, 5)
	seedClicked(t, f, client, 2)
	testutil.SeedRequest(t, f.db, client.ID, models.StatusPending, nil, nil)

	svc := NewAnalyticsService(f.db, testutil.Logger(t))
	out, err := svc.Shared(ctx, "share-abc", AnalyticsFilter{})
	if err != nil {
		t.Fatalf("shared: %v", err)
	}
	if out.Client.Name != "Acme Dental" || out.Stats.TotalSent != 2 || out.Stats.ClickRate != 100 {
		t.Fatalf("unexpected dashboard %+v", out)
	}
	if out.Stats.AvgRating == nil || *out.Stats.AvgRating != 3.5 {
		t.Fatalf("want average 3.5, got %v", out.Stats.AvgRating)
	}
	if len(out.RecentActivity) != 3 {
		t.Fatalf("want 3 activity rows, got %d", len(out.RecentActivity))
	}
	for _, a := range out.RecentActivity {
		if a.FirstName != "Jane" {
			t.Fatalf("activity should expose the first name only, got %q", a.FirstName)
		}
	}

	if _, err := svc.Shared(ctx, "unknown", AnalyticsFilter{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
