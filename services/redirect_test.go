package services

import (
	"testing"

	"reviewflow-backend/models"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func requestWith(provider *models.Provider, location *models.Location) *models.ReviewRequest {
	rr := &models.ReviewRequest{
		Client: models.Client{
			GooglePlaceID:  "C",
			ContactPageURL: "https://client.test/contact",
			WebsiteURL:     "https://client.test",
		},
	}
	if provider != nil {
		id := uuid.New()
		rr.ProviderID = &id
		rr.Provider = provider
	}
	if location != nil {
		id := uuid.New()
		rr.LocationID = &id
		rr.Location = location
	}
	return rr
}

func TestParseRating(t *testing.T) {
	for _, raw := range []string{"1", "2", "3", "4", "5"} {
		if _, err := ParseRating(raw); err != nil {
			t.Fatalf("rating %s rejected: %v", raw, err)
		}
	}
	for _, raw := range []string{"", "0", "6", "abc", "-1", "3.5", "5x"} {
		if _, err := ParseRating(raw); err == nil {
			t.Fatalf("rating %q accepted", raw)
		}
	}
}

func TestResolveDestinationClientOnly(t *testing.T) {
	rr := requestWith(nil, nil)
	for rating := 1; rating <= 5; rating++ {
		got := ResolveDestination(rr, rating, "https://home.test")
		want := "https://client.test/contact"
		if rating == 5 {
			want = GoogleReviewURL("C")
		}
		if got != want {
			t.Fatalf("rating %d: want %s, got %s", rating, want, got)
		}
	}
}

func TestResolveDestinationFallbackChain(t *testing.T) {
	loc := &models.Location{GooglePlaceID: "L", ContactPageURL: "https://loc.test/contact"}

	rr := requestWith(&models.Provider{GooglePlaceID: strPtr("P")}, loc)
	if got := ResolveDestination(rr, 5, ""); got != GoogleReviewURL("P") {
		t.Fatalf("want provider listing, got %s", got)
	}

	rr = requestWith(&models.Provider{GooglePlaceID: strPtr("")}, loc)
	if got := ResolveDestination(rr, 5, ""); got != GoogleReviewURL("L") {
		t.Fatalf("want location listing, got %s", got)
	}

	rr = requestWith(&models.Provider{}, &models.Location{ContactPageURL: "https://loc.test/contact"})
	if got := ResolveDestination(rr, 5, ""); got != GoogleReviewURL("C") {
		t.Fatalf("want client listing, got %s", got)
	}

	if got := ResolveDestination(rr, 3, ""); got != "https://loc.test/contact" {
		t.Fatalf("want location contact page, got %s", got)
	}

	rr = requestWith(nil, &models.Location{GooglePlaceID: "L"})
	if got := ResolveDestination(rr, 1, ""); got != "https://client.test/contact" {
		t.Fatalf("want client contact page when location has none, got %s", got)
	}
}

func TestResolveDestinationNothingConfigured(t *testing.T) {
	rr := &models.ReviewRequest{}
	if got := ResolveDestination(rr, 5, "https://home.test"); got != "https://home.test" {
		t.Fatalf("want fallback, got %s", got)
	}
}

func TestGoogleReviewURL(t *testing.T) {
	want := "https://search.google.com/local/writereview?placeid=ChIJ123"
	if got := GoogleReviewURL("ChIJ123"); got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}
