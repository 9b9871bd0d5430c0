package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reviewflow-backend/utils"
)

const (
	defaultAcuityBaseURL = "https://acuityscheduling.com/api/v1"
	acuityPageSize       = 100
	acuityPagePause      = 100 * time.Millisecond
)

var ErrAcuityNotConfigured = errors.New("ACUITY_USER_ID and ACUITY_API_KEY must be set")

type Appointment struct {
	ID                int64  `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	CalendarID        int64  `json:"calendarID"`
	AppointmentTypeID int64  `json:"appointmentTypeID"`
	Canceled          bool   `json:"canceled"`
}

type Calendar struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ReplyTo     string `json:"replyTo"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Timezone    string `json:"timezone"`
}

// AppointmentSource is what the weekly automation needs from the scheduler.
type AppointmentSource interface {
	Enabled(ctx context.Context) bool
	Appointments(ctx context.Context, minDate, maxDate time.Time, calendarID int64) ([]Appointment, error)
}

// AcuityClient talks to the Acuity Scheduling REST API with credentials
// resolved from settings on every call.
type AcuityClient struct {
	settings   SettingsResolver
	log        *utils.Logger
	baseURL    string
	httpClient *http.Client
	pause      time.Duration
}

func NewAcuityClient(settings SettingsResolver, log *utils.Logger, baseURL string, timeout time.Duration) *AcuityClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultAcuityBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &AcuityClient{
		settings:   settings,
		log:        log.With("client", "AcuityClient"),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		pause:      acuityPagePause,
	}
}

func (c *AcuityClient) Enabled(ctx context.Context) bool {
	v, _ := c.settings.Get(ctx, KeyAcuityEnabled)
	return v == "true"
}

func (c *AcuityClient) Calendars(ctx context.Context) ([]Calendar, error) {
	var out []Calendar
	if err := c.get(ctx, "/calendars", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Appointments pages through the inclusive date range and drops canceled
// appointments. calendarID 0 means every calendar.
func (c *AcuityClient) Appointments(ctx context.Context, minDate, maxDate time.Time, calendarID int64) ([]Appointment, error) {
	var all []Appointment
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("minDate", minDate.Format(utils.DateLayout))
		params.Set("maxDate", maxDate.Format(utils.DateLayout))
		params.Set("max", strconv.Itoa(acuityPageSize))
		params.Set("page", strconv.Itoa(page))
		if calendarID != 0 {
			params.Set("calendarID", strconv.FormatInt(calendarID, 10))
		}

		var batch []Appointment
		if err := c.get(ctx, "/appointments", params, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < acuityPageSize {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pause):
		}
	}

	active := all[:0]
	for _, a := range all {
		if !a.Canceled {
			active = append(active, a)
		}
	}
	return active, nil
}

func (c *AcuityClient) get(ctx context.Context, path string, params url.Values, out any) error {
	userID, okUser := c.settings.Get(ctx, KeyAcuityUserID)
	apiKey, okKey := c.settings.Get(ctx, KeyAcuityAPIKey)
	if !okUser || !okKey {
		return ErrAcuityNotConfigured
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(userID, apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("acuity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("acuity API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode acuity response: %w", err)
	}
	return nil
}
