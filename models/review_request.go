package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review request statuses, in the only order they may advance.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusOpened  = "opened"
	StatusClicked = "clicked"
)

// Review request sources.
const (
	SourceManual        = "manual"
	SourceCSV           = "csv"
	SourceTest          = "test"
	SourceAcuityAuto    = "acuity_auto"
	SourceAcuityWebhook = "acuity_webhook"
)

var validSources = map[string]bool{
	SourceManual:        true,
	SourceCSV:           true,
	SourceTest:          true,
	SourceAcuityAuto:    true,
	SourceAcuityWebhook: true,
}

func IsValidSource(s string) bool {
	return validSources[s]
}

type ReviewRequest struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	CustomerName  string     `gorm:"not null" json:"customer_name"`
	CustomerEmail string     `gorm:"not null" json:"customer_email"`
	Token         string     `gorm:"uniqueIndex;not null" json:"token"`
	Status        string     `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	SentAt        *time.Time `json:"sent_at"`
	OpenedAt      *time.Time `json:"opened_at"`
	ClickedAt     *time.Time `json:"clicked_at"`
	RatingClicked *int       `json:"rating_clicked"`
	LocationID    *uuid.UUID `gorm:"type:uuid;index" json:"location_id"`
	ProviderID    *uuid.UUID `gorm:"type:uuid;index" json:"provider_id"`
	BatchID       *uuid.UUID `gorm:"type:uuid;index" json:"batch_id"`
	Source        string     `gorm:"type:varchar(20);not null;default:'manual'" json:"source"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`

	Client   Client    `gorm:"foreignKey:ClientID" json:"-"`
	Location *Location `gorm:"foreignKey:LocationID" json:"-"`
	Provider *Provider `gorm:"foreignKey:ProviderID" json:"-"`
}

func (r *ReviewRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ClickEvent is an append-only record of one rating click.
type ClickEvent struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ReviewRequestID uuid.UUID `gorm:"type:uuid;index;not null" json:"review_request_id"`
	Rating          int       `gorm:"not null" json:"rating"`
	RedirectedTo    string    `gorm:"type:text;not null" json:"redirected_to"`
	UserAgent       *string   `gorm:"type:text" json:"user_agent"`
	IPAddress       *string   `gorm:"size:64" json:"ip_address"`
	ClickedAt       time.Time `gorm:"index" json:"clicked_at"`

	ReviewRequest ReviewRequest `gorm:"foreignKey:ReviewRequestID" json:"-"`
}

func (e *ClickEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ClickedAt.IsZero() {
		e.ClickedAt = time.Now()
	}
	return
}

// EmailOpen is an append-only record of one tracking pixel fetch.
type EmailOpen struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ReviewRequestID uuid.UUID `gorm:"type:uuid;index;not null" json:"review_request_id"`
	OpenedAt        time.Time `json:"opened_at"`
}

func (e *EmailOpen) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OpenedAt.IsZero() {
		e.OpenedAt = time.Now()
	}
	return
}
