package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"reviewflow-backend/models"
	"reviewflow-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultFromName    = "ReviewFlow"
	defaultFromAddress = "feedback@dadadigital.com"
	testCustomerName   = "Test User"
)

// ReviewService owns the review request state machine and outbound sends.
type ReviewService struct {
	db       *gorm.DB
	log      *utils.Logger
	mailer   Mailer
	settings SettingsResolver
	patients *PatientService
	appURL   string
	now      func() time.Time
}

func NewReviewService(db *gorm.DB, log *utils.Logger, mailer Mailer, settings SettingsResolver, patients *PatientService, appURL string) *ReviewService {
	return &ReviewService{
		db:       db,
		log:      log.With("service", "ReviewService"),
		mailer:   mailer,
		settings: settings,
		patients: patients,
		appURL:   strings.TrimRight(appURL, "/"),
		now:      time.Now,
	}
}

type CreateInput struct {
	ClientID      uuid.UUID
	CustomerName  string
	CustomerEmail string
	LocationID    *uuid.UUID
	ProviderID    *uuid.UUID
	BatchID       *uuid.UUID
	Source        string
}

// Create inserts a pending request with a fresh token.
func (s *ReviewService) Create(ctx context.Context, in CreateInput) (*models.ReviewRequest, error) {
	source := in.Source
	if source == "" {
		source = models.SourceManual
	}
	rr := &models.ReviewRequest{
		ClientID:      in.ClientID,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerEmail: utils.NormalizeEmail(in.CustomerEmail),
		Token:         utils.NewRequestToken(),
		Status:        models.StatusPending,
		LocationID:    in.LocationID,
		ProviderID:    in.ProviderID,
		BatchID:       in.BatchID,
		Source:        source,
	}
	if err := s.db.WithContext(ctx).Create(rr).Error; err != nil {
		return nil, fmt.Errorf("create review request: %w", err)
	}
	return rr, nil
}

// MarkSent flips pending to sent. It reports whether the row changed.
func (s *ReviewService) MarkSent(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ReviewRequest{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":  models.StatusSent,
			"sent_at": s.now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindByToken loads a request with its client, location and provider.
func (s *ReviewService) FindByToken(ctx context.Context, token string) (*models.ReviewRequest, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var rr models.ReviewRequest
	err := s.db.WithContext(ctx).
		Joins("Client").
		Joins("Location").
		Joins("Provider").
		Where("review_requests.token = ?", token).
		First(&rr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// RecordOpen stamps the first open and logs every open. Unknown tokens are
// ignored. Status only advances from sent, so clicked is never downgraded.
func (s *ReviewService) RecordOpen(ctx context.Context, token string) error {
	var rr models.ReviewRequest
	err := s.db.WithContext(ctx).Select("id").Where("token = ?", token).First(&rr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ReviewRequest{}).
			Where("id = ? AND opened_at IS NULL", rr.ID).
			Updates(map[string]interface{}{
				"opened_at": now,
				"status": gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
					models.StatusSent, models.StatusOpened),
			}).Error
		if err != nil {
			return fmt.Errorf("mark opened: %w", err)
		}
		return tx.Create(&models.EmailOpen{ReviewRequestID: rr.ID, OpenedAt: now}).Error
	})
}

type ClickInput struct {
	RequestID   uuid.UUID
	Rating      int
	Destination string
	UserAgent   string
	IPAddress   string
}

// RecordClick stores the latest rating on the request and appends a click event.
func (s *ReviewService) RecordClick(ctx context.Context, in ClickInput) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ReviewRequest{}).
			Where("id = ?", in.RequestID).
			Updates(map[string]interface{}{
				"status":         models.StatusClicked,
				"clicked_at":     now,
				"rating_clicked": in.Rating,
			}).Error
		if err != nil {
			return fmt.Errorf("mark clicked: %w", err)
		}
		return tx.Create(&models.ClickEvent{
			ReviewRequestID: in.RequestID,
			Rating:          in.Rating,
			RedirectedTo:    in.Destination,
			UserAgent:       optional(in.UserAgent),
			IPAddress:       optional(in.IPAddress),
			ClickedAt:       now,
		}).Error
	})
}

type SendInput struct {
	ClientID      uuid.UUID
	CustomerName  string
	CustomerEmail string
	LocationID    *uuid.UUID
	ProviderID    *uuid.UUID
	Source        string
}

// Send validates the input, records the patient and delivers one request.
func (s *ReviewService) Send(ctx context.Context, in SendInput) (*models.ReviewRequest, error) {
	name := strings.TrimSpace(in.CustomerName)
	email := utils.NormalizeEmail(in.CustomerEmail)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: customerName and customerEmail are required", ErrValidation)
	}
	if !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if in.Source != "" && !models.IsValidSource(in.Source) {
		return nil, fmt.Errorf("%w: unknown source %q", ErrValidation, in.Source)
	}

	client, err := s.LoadClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, client.ID, in.LocationID, in.ProviderID); err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = models.SourceManual
	}
	if source != models.SourceTest {
		if _, err := s.patients.RegisterName(ctx, client.ID, name, email, source); err != nil {
			s.log.Warn("patient record failed", "client_id", client.ID, "error", err)
		}
	}

	return s.Deliver(ctx, client, CreateInput{
		ClientID:      client.ID,
		CustomerName:  name,
		CustomerEmail: email,
		LocationID:    in.LocationID,
		ProviderID:    in.ProviderID,
		Source:        source,
	})
}

// SendTest sends a sample request to email on behalf of clientID, or of the
// first active client by name when clientID is nil.
func (s *ReviewService) SendTest(ctx context.Context, email string, clientID *uuid.UUID) (*models.ReviewRequest, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	var client *models.Client
	if clientID != nil {
		c, err := s.LoadClient(ctx, *clientID)
		if err != nil {
			return nil, err
		}
		client = c
	} else {
		var c models.Client
		err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		if err != nil {
			return nil, err
		}
		client = &c
	}

	return s.Deliver(ctx, client, CreateInput{
		ClientID:      client.ID,
		CustomerName:  testCustomerName,
		CustomerEmail: email,
		Source:        models.SourceTest,
	})
}

// Deliver creates the request, emails it and marks it sent. When the email
// cannot be delivered the request stays pending and ErrSendFailed is returned.
// If the email went out but the status update fails, the request is returned
// with that error and must not be counted as sent.
func (s *ReviewService) Deliver(ctx context.Context, client *models.Client, in CreateInput) (*models.ReviewRequest, error) {
	rr, err := s.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.dispatch(ctx, client, rr); err != nil {
		s.log.Warn("review email failed", "request_id", rr.ID, "client_id", client.ID, "error", err)
		return rr, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	// The email is out, so the caller going away must not skip the update.
	changed, err := s.MarkSent(context.WithoutCancel(ctx), rr.ID)
	if err != nil {
		s.log.Error("mark sent failed", "request_id", rr.ID, "error", err)
		return rr, fmt.Errorf("mark sent: %w", err)
	}
	if changed {
		now := s.now()
		rr.Status = models.StatusSent
		rr.SentAt = &now
	}
	return rr, nil
}

func (s *ReviewService) dispatch(ctx context.Context, client *models.Client, rr *models.ReviewRequest) error {
	first, _ := utils.SplitName(rr.CustomerName)
	if first == "" {
		first = rr.CustomerName
	}
	html, err := RenderReviewEmail(ReviewEmailData{
		CustomerName: first,
		ClientName:   client.Name,
		LogoURL:      deref(client.LogoURL),
		BrandColor:   FirstNonEmpty(client.BrandColor, "#2563EB"),
		BaseURL:      s.appURL,
		Token:        rr.Token,
	})
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	subject := fmt.Sprintf("How was your experience with %s?", client.Name)
	if rr.Source == models.SourceTest {
		subject = "[TEST] " + subject
	}

	return s.mailer.Send(ctx, Email{
		From:    s.fromHeader(ctx, client),
		To:      rr.CustomerEmail,
		Subject: subject,
		HTML:    html,
	})
}

func (s *ReviewService) fromHeader(ctx context.Context, client *models.Client) string {
	address := defaultFromAddress
	if configured, ok := s.settings.Get(ctx, KeyEmailFrom); ok {
		if parsed, err := mail.ParseAddress(configured); err == nil {
			address = parsed.Address
		}
	}
	name := FirstNonEmpty(deref(client.EmailFromName), defaultFromName)
	return (&mail.Address{Name: name, Address: address}).String()
}

// LoadClient returns ErrClientNotFound for unknown ids.
func (s *ReviewService) LoadClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: clientId is required", ErrValidation)
	}
	var client models.Client
	err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *ReviewService) checkOwnership(ctx context.Context, clientID uuid.UUID, locationID, providerID *uuid.UUID) error {
	if locationID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Location{}).
			Where("id = ? AND client_id = ?", *locationID, clientID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: location does not belong to client", ErrValidation)
		}
	}
	if providerID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Provider{}).
			Where("id = ? AND client_id = ?", *providerID, clientID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: provider does not belong to client", ErrValidation)
		}
	}
	return nil
}
