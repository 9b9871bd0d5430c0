package services

import (
	"context"
	"fmt"

	"reviewflow-backend/models"
	"reviewflow-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PatientService is the first-visit gate. Whether a (client, email) pair is new
// is decided by a single insert against the unique (client_id, email) index,
// so concurrent callers for the same pair see exactly one winner.
type PatientService struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewPatientService(db *gorm.DB, log *utils.Logger) *PatientService {
	return &PatientService{db: db, log: log.With("service", "PatientService")}
}

type PatientInput struct {
	ClientID  uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Source    string
}

// RegisterIfNew inserts the patient unless the pair already exists and
// reports whether this call created the row.
func (s *PatientService) RegisterIfNew(ctx context.Context, in PatientInput) (bool, error) {
	email := utils.NormalizeEmail(in.Email)
	if in.ClientID == uuid.Nil || email == "" {
		return false, fmt.Errorf("%w: client and email are required", ErrValidation)
	}

	p := models.Patient{
		ClientID:  in.ClientID,
		Email:     email,
		FirstName: optional(in.FirstName),
		LastName:  optional(in.LastName),
		Source:    in.Source,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "email"}},
			DoNothing: true,
		}).
		Create(&p)
	if res.Error != nil {
		return false, fmt.Errorf("register patient: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RegisterName splits a full name before registering.
func (s *PatientService) RegisterName(ctx context.Context, clientID uuid.UUID, fullName, email, source string) (bool, error) {
	first, last := utils.SplitName(fullName)
	return s.RegisterIfNew(ctx, PatientInput{
		ClientID:  clientID,
		Email:     email,
		FirstName: first,
		LastName:  last,
		Source:    source,
	})
}

type FirstTimeResult struct {
	FirstTime []Recipient `json:"firstTime"`
	Existing  []Recipient `json:"existing"`
}

// Partition runs each recipient through the gate in order.
func (s *PatientService) Partition(ctx context.Context, clientID uuid.UUID, recipients []Recipient, source string) (FirstTimeResult, error) {
	res := FirstTimeResult{FirstTime: []Recipient{}, Existing: []Recipient{}}
	for _, r := range recipients {
		isNew, err := s.RegisterName(ctx, clientID, r.Name, r.Email, source)
		if err != nil {
			return res, err
		}
		if isNew {
			res.FirstTime = append(res.FirstTime, r)
		} else {
			res.Existing = append(res.Existing, r)
		}
	}
	return res, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
