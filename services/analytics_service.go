package services

import (
	"context"
	"errors"
	"math"
	"time"

	"reviewflow-backend/models"
	"reviewflow-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	adminClickLimit      = 200
	sharedRequestLimit   = 500
	sharedActivityLength = 20
)

// AnalyticsFilter narrows by client and an inclusive day range.
type AnalyticsFilter struct {
	ClientID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type LocationStats struct {
	Sent    int `json:"sent"`
	Clicked int `json:"clicked"`
	Opened  int `json:"opened"`
}

type ClickRow struct {
	ID              uuid.UUID `json:"id"`
	ReviewRequestID uuid.UUID `json:"review_request_id"`
	Rating          int       `json:"rating"`
	RedirectedTo    string    `json:"redirected_to"`
	UserAgent       *string   `json:"user_agent"`
	IPAddress       *string   `json:"ip_address"`
	ClickedAt       time.Time `json:"clicked_at"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	ClientName      string    `json:"client_name"`
}

type Analytics struct {
	TotalRequests     int                      `json:"totalRequests"`
	TotalSent         int                      `json:"totalSent"`
	TotalClicked      int                      `json:"totalClicked"`
	TotalOpened       int                      `json:"totalOpened"`
	ClickRate         int                      `json:"clickRate"`
	OpenRate          int                      `json:"openRate"`
	FiveStarRate      int                      `json:"fiveStarRate"`
	AvgRating         *float64                 `json:"avgRating"`
	Distribution      [5]int                   `json:"distribution"`
	SourceBreakdown   map[string]int           `json:"sourceBreakdown"`
	LocationBreakdown map[string]LocationStats `json:"locationBreakdown"`
	Clicks            []ClickRow               `json:"clicks"`
}

type SharedClient struct {
	Name       string  `json:"name"`
	BrandColor string  `json:"brandColor"`
	LogoURL    *string `json:"logoUrl"`
}

type SharedStats struct {
	TotalSent int      `json:"totalSent"`
	OpenRate  int      `json:"openRate"`
	ClickRate int      `json:"clickRate"`
	AvgRating *float64 `json:"avgRating"`
}

type ActivityRow struct {
	FirstName string    `json:"firstName"`
	Status    string    `json:"status"`
	Rating    *int      `json:"rating"`
	Date      time.Time `json:"date"`
}

type SharedDashboard struct {
	Client         SharedClient  `json:"client"`
	Stats          SharedStats   `json:"stats"`
	Distribution   [5]int        `json:"distribution"`
	RecentActivity []ActivityRow `json:"recentActivity"`
}

type AnalyticsService struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewAnalyticsService(db *gorm.DB, log *utils.Logger) *AnalyticsService {
	return &AnalyticsService{db: db, log: log.With("service", "AnalyticsService")}
}

// Percent rounds part/whole to a whole percentage, 0 when whole is 0.
func Percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func averageRating(sum, count int) *float64 {
	if count == 0 {
		return nil
	}
	avg := math.Round(float64(sum)/float64(count)*10) / 10
	return &avg
}

func (s *AnalyticsService) Admin(ctx context.Context, f AnalyticsFilter) (*Analytics, error) {
	clicks, err := s.recentClicks(ctx, f)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.ReviewRequest{}).
		Select("id", "status", "opened_at", "source", "location_id")
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	q = applyRange(q, "created_at", f)
	var requests []models.ReviewRequest
	if err := q.Find(&requests).Error; err != nil {
		return nil, err
	}

	out := &Analytics{
		TotalRequests:     len(requests),
		SourceBreakdown:   map[string]int{},
		LocationBreakdown: map[string]LocationStats{},
		Clicks:            clicks,
	}
	for _, r := range requests {
		sent := r.Status != models.StatusPending
		clicked := r.Status == models.StatusClicked
		opened := r.OpenedAt != nil
		if sent {
			out.TotalSent++
		}
		if clicked {
			out.TotalClicked++
		}
		if opened {
			out.TotalOpened++
		}
		out.SourceBreakdown[FirstNonEmpty(r.Source, models.SourceManual)]++

		if f.ClientID != nil {
			key := "default"
			if r.LocationID != nil {
				key = r.LocationID.String()
			}
			stats := out.LocationBreakdown[key]
			if sent {
				stats.Sent++
			}
			if clicked {
				stats.Clicked++
			}
			if opened {
				stats.Opened++
			}
			out.LocationBreakdown[key] = stats
		}
	}

	var ratingSum int
	for _, c := range clicks {
		if c.Rating >= 1 && c.Rating <= 5 {
			out.Distribution[c.Rating-1]++
		}
		ratingSum += c.Rating
	}
	out.ClickRate = Percent(out.TotalClicked, out.TotalSent)
	out.OpenRate = Percent(out.TotalOpened, out.TotalSent)
	out.FiveStarRate = Percent(out.Distribution[4], len(clicks))
	out.AvgRating = averageRating(ratingSum, len(clicks))
	return out, nil
}

func (s *AnalyticsService) recentClicks(ctx context.Context, f AnalyticsFilter) ([]ClickRow, error) {
	q := s.db.WithContext(ctx).Table("click_events").
		Select(`click_events.id, click_events.review_request_id, click_events.rating,
			click_events.redirected_to, click_events.user_agent, click_events.ip_address,
			click_events.clicked_at, review_requests.customer_name, review_requests.customer_email,
			clients.name AS client_name`).
		Joins("JOIN review_requests ON review_requests.id = click_events.review_request_id").
		Joins("JOIN clients ON clients.id = review_requests.client_id")
	if f.ClientID != nil {
		q = q.Where("review_requests.client_id = ?", *f.ClientID)
	}
	q = applyRange(q, "click_events.clicked_at", f)

	rows := []ClickRow{}
	err := q.Order("click_events.clicked_at DESC").Limit(adminClickLimit).Scan(&rows).Error
	return rows, err
}

// Shared builds the read-only dashboard behind a share token.
func (s *AnalyticsService) Shared(ctx context.Context, shareToken string, f AnalyticsFilter) (*SharedDashboard, error) {
	if shareToken == "" {
		return nil, ErrNotFound
	}
	var client models.Client
	err := s.db.WithContext(ctx).Where("share_token = ?", shareToken).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.ReviewRequest{}).
		Select("id", "status", "opened_at", "rating_clicked", "created_at", "customer_name").
		Where("client_id = ?", client.ID)
	q = applyRange(q, "created_at", f)
	var requests []models.ReviewRequest
	if err := q.Order("created_at DESC").Limit(sharedRequestLimit).Find(&requests).Error; err != nil {
		return nil, err
	}

	out := &SharedDashboard{
		Client: SharedClient{
			Name:       client.Name,
			BrandColor: client.BrandColor,
			LogoURL:    client.LogoURL,
		},
		RecentActivity: []ActivityRow{},
	}
	var opened, clicked, rated, ratingSum int
	for i, r := range requests {
		if r.Status != models.StatusPending {
			out.Stats.TotalSent++
		}
		if r.OpenedAt != nil {
			opened++
		}
		if r.Status == models.StatusClicked {
			clicked++
		}
		if r.RatingClicked != nil && *r.RatingClicked >= 1 && *r.RatingClicked <= 5 {
			out.Distribution[*r.RatingClicked-1]++
			ratingSum += *r.RatingClicked
			rated++
		}
		if i < sharedActivityLength {
			first, _ := utils.SplitName(r.CustomerName)
			out.RecentActivity = append(out.RecentActivity, ActivityRow{
				FirstName: first,
				Status:    r.Status,
				Rating:    r.RatingClicked,
				Date:      r.CreatedAt,
			})
		}
	}
	out.Stats.OpenRate = Percent(opened, out.Stats.TotalSent)
	out.Stats.ClickRate = Percent(clicked, out.Stats.TotalSent)
	out.Stats.AvgRating = averageRating(ratingSum, rated)
	return out, nil
}

func applyRange(q *gorm.DB, column string, f AnalyticsFilter) *gorm.DB {
	if f.From != nil {
		q = q.Where(column+" >= ?", utils.BeginningOfDay(*f.From))
	}
	if f.To != nil {
		q = q.Where(column+" <= ?", utils.EndOfDay(*f.To))
	}
	return q
}
