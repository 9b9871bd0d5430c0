package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BatchPending    = "pending"
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchFailed     = "failed"
)

// SendBatch summarises one automation run for one client.
type SendBatch struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	WeekStart  time.Time  `gorm:"type:date;not null" json:"week_start"`
	WeekEnd    time.Time  `gorm:"type:date;not null" json:"week_end"`
	TotalNew   int        `gorm:"default:0" json:"total_new"`
	TotalSent  int        `gorm:"default:0" json:"total_sent"`
	Status     string     `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func (b *SendBatch) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// AppSetting is a key/value override of environment configuration.
type AppSetting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&Client{},
		&Location{},
		&Provider{},
		&Patient{},
		&SendBatch{},
		&ReviewRequest{},
		&ClickEvent{},
		&EmailOpen{},
		&AppSetting{},
	}
}
