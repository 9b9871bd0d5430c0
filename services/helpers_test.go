package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reviewflow-backend/testutil"

	"gorm.io/gorm"
)

type staticSettings map[string]string

func (s staticSettings) Get(_ context.Context, key string) (string, bool) {
	v, ok := s[key]
	return v, ok && v != ""
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []Email
	failFor map[string]bool
	onSend  func()
}

var errMailerDown = errors.New("mailer down")

func (m *fakeMailer) Send(_ context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[email.To] || m.failFor["*"] {
		return errMailerDown
	}
	m.sent = append(m.sent, email)
	if m.onSend != nil {
		m.onSend()
	}
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type reviewFixture struct {
	db       *gorm.DB
	mailer   *fakeMailer
	patients *PatientService
	reviews  *ReviewService
}

func newReviewFixture(t *testing.T) reviewFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	mailer := &fakeMailer{failFor: map[string]bool{}}
	patients := NewPatientService(db, log)
	reviews := NewReviewService(db, log, mailer, staticSettings{}, patients, "https://app.test/")
	return reviewFixture{db: db, mailer: mailer, patients: patients, reviews: reviews}
}
