package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient records the first known contact of an email address with a client.
// Rows are only ever inserted.
type Patient struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_patients_client_email,priority:1" json:"client_id"`
	Email       string    `gorm:"not null;uniqueIndex:idx_patients_client_email,priority:2" json:"email"`
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	Source      string    `gorm:"type:varchar(20)" json:"source"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

func (p *Patient) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.FirstSeenAt.IsZero() {
		p.FirstSeenAt = time.Now()
	}
	return
}
