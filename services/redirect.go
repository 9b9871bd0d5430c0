package services

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"reviewflow-backend/models"
)

const googleWriteReviewURL = "https://search.google.com/local/writereview?placeid="

var ErrInvalidRating = errors.New("invalid rating")

// ParseRating accepts only the integers 1 through 5.
func ParseRating(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > 5 {
		return 0, ErrInvalidRating
	}
	return n, nil
}

// GoogleReviewURL links straight to the write-a-review dialog of a place.
func GoogleReviewURL(placeID string) string {
	return googleWriteReviewURL + url.QueryEscape(placeID)
}

// FirstNonEmpty returns the first candidate that is set, in precedence order.
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PlaceIDChain lists review listings from most to least specific:
// provider, location, client.
func PlaceIDChain(rr *models.ReviewRequest) []string {
	var chain []string
	if rr.ProviderID != nil && rr.Provider != nil {
		chain = append(chain, deref(rr.Provider.GooglePlaceID))
	}
	if rr.LocationID != nil && rr.Location != nil {
		chain = append(chain, rr.Location.GooglePlaceID)
	}
	return append(chain, rr.Client.GooglePlaceID)
}

// ContactChain lists private feedback pages: location, then client.
func ContactChain(rr *models.ReviewRequest) []string {
	var chain []string
	if rr.LocationID != nil && rr.Location != nil {
		chain = append(chain, rr.Location.ContactPageURL)
	}
	return append(chain, rr.Client.ContactPageURL)
}

// ResolveDestination picks where a rating click lands. Five stars go to the
// most specific public review page; anything lower goes to a contact page.
// fallback is used when nothing along the chain is configured.
func ResolveDestination(rr *models.ReviewRequest, rating int, fallback string) string {
	if rating == 5 {
		if placeID := FirstNonEmpty(PlaceIDChain(rr)...); placeID != "" {
			return GoogleReviewURL(placeID)
		}
	}
	if contact := FirstNonEmpty(ContactChain(rr)...); contact != "" {
		return contact
	}
	return FirstNonEmpty(rr.Client.WebsiteURL, fallback)
}
