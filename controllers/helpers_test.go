package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"reviewflow-backend/services"
	"reviewflow-backend/testutil"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noSettings struct{}

func (noSettings) Get(context.Context, string) (string, bool) { return "", false }

type stubMailer struct {
	mu   sync.Mutex
	sent []services.Email
	fail bool
}

func (m *stubMailer) Send(_ context.Context, email services.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type env struct {
	db       *gorm.DB
	log      *utils.Logger
	mailer   *stubMailer
	patients *services.PatientService
	reviews  *services.ReviewService
	runner   *services.BackgroundRunner
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	mailer := &stubMailer{}
	patients := services.NewPatientService(db, log)
	return env{
		db:       db,
		log:      log,
		mailer:   mailer,
		patients: patients,
		reviews:  services.NewReviewService(db, log, mailer, noSettings{}, patients, "https://app.test"),
		runner:   services.NewBackgroundRunner(log, 5*time.Second),
	}
}

func (e env) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.runner.Wait(ctx); err != nil {
		t.Fatalf("background tasks did not finish: %v", err)
	}
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}
