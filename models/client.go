package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Client is a tenant business collecting reviews.
type Client struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Slug           string    `gorm:"uniqueIndex;not null" json:"slug"`
	GooglePlaceID  string    `gorm:"not null" json:"google_place_id"`
	WebsiteURL     string    `gorm:"not null" json:"website_url"`
	ContactPageURL string    `gorm:"not null" json:"contact_page_url"`
	BrandColor     string    `gorm:"type:varchar(16);default:'#2563EB'" json:"brand_color"`
	LogoURL        *string   `json:"logo_url"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	ShareToken     *string   `gorm:"uniqueIndex" json:"share_token"`

	AcuityCalendarIDs        datatypes.JSONSlice[int64] `json:"acuity_calendar_ids"`
	AcuityAppointmentTypeIDs datatypes.JSONSlice[int64] `json:"acuity_appointment_type_ids"`
	EmailFromName            *string                    `json:"email_from_name"`
	AutoSendEnabled          bool                       `gorm:"default:false" json:"auto_send_enabled"`

	Locations []Location `gorm:"foreignKey:ClientID" json:"locations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Location is an optional sub-unit of a client with its own review and contact targets.
type Location struct {
	ID                uuid.UUID                  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID          uuid.UUID                  `gorm:"type:uuid;index;not null" json:"client_id"`
	Name              string                     `gorm:"not null" json:"name"`
	GooglePlaceID     string                     `json:"google_place_id"`
	ContactPageURL    string                     `json:"contact_page_url"`
	AcuityCalendarIDs datatypes.JSONSlice[int64] `json:"acuity_calendar_ids"`
	IsDefault         bool                       `gorm:"default:false" json:"is_default"`
	CreatedAt         time.Time                  `json:"created_at"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}

// Provider is a practitioner whose own listing overrides the location and client ones.
type Provider struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ClientID      uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`
	Name          string    `gorm:"not null" json:"name"`
	DisplayName   string    `json:"display_name"`
	GooglePlaceID *string   `json:"google_place_id"`
	NPI           *string   `json:"npi"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

func (p *Provider) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
