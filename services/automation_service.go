package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reviewflow-backend/models"
	"reviewflow-backend/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultCalendarFetchLimit = 4
	sendTimeout               = 30 * time.Second
	finalizeTimeout           = 10 * time.Second
)

type ClientRunSummary struct {
	ClientName        string `json:"clientName"`
	AppointmentsFound int    `json:"appointmentsFound"`
	NewPatients       int    `json:"newPatients"`
	EmailsSent        int    `json:"emailsSent"`
	Error             string `json:"error,omitempty"`
}

type RunResult struct {
	Message   string             `json:"message"`
	Processed int                `json:"processed"`
	Results   []ClientRunSummary `json:"results"`
}

// RunNotifier is told about every run that processed at least one client.
type RunNotifier interface {
	NotifyRun(ctx context.Context, result RunResult) error
}

// AutomationService sends review requests to first-time patients found in the
// scheduler over the trailing week. Each client is an isolated failure domain.
type AutomationService struct {
	db            *gorm.DB
	log           *utils.Logger
	source        AppointmentSource
	reviews       *ReviewService
	patients      *PatientService
	notifier      RunNotifier
	clientTimeout time.Duration
	fetchLimit    int
	now           func() time.Time
}

func NewAutomationService(db *gorm.DB, log *utils.Logger, source AppointmentSource, reviews *ReviewService, patients *PatientService, clientTimeout time.Duration) *AutomationService {
	if clientTimeout <= 0 {
		clientTimeout = 5 * time.Minute
	}
	return &AutomationService{
		db:            db,
		log:           log.With("service", "AutomationService"),
		source:        source,
		reviews:       reviews,
		patients:      patients,
		clientTimeout: clientTimeout,
		fetchLimit:    defaultCalendarFetchLimit,
		now:           time.Now,
	}
}

// SetNotifier installs the run summary hook. nil disables it.
func (s *AutomationService) SetNotifier(n RunNotifier) {
	s.notifier = n
}

// RunWeekly processes every active auto-send client once. It is safe to call
// repeatedly: patients already seen are never sent to again.
func (s *AutomationService) RunWeekly(ctx context.Context) (RunResult, error) {
	result := RunResult{Results: []ClientRunSummary{}}
	if !s.source.Enabled(ctx) {
		result.Message = "Acuity disabled, use CSV upload instead"
		return result, nil
	}

	var clients []models.Client
	err := s.db.WithContext(ctx).
		Preload("Locations").
		Where("is_active = ? AND auto_send_enabled = ?", true, true).
		Order("name ASC").
		Find(&clients).Error
	if err != nil {
		return result, fmt.Errorf("load clients: %w", err)
	}
	if len(clients) == 0 {
		result.Message = "No clients with auto-send enabled"
		return result, nil
	}

	weekStart, weekEnd := utils.TrailingWeek(s.now())
	s.log.Info("weekly automation started", "clients", len(clients),
		"week_start", weekStart.Format(utils.DateLayout), "week_end", weekEnd.Format(utils.DateLayout))

	for i := range clients {
		client := &clients[i]
		if len(client.AcuityCalendarIDs) == 0 {
			continue
		}
		summary, err := s.runClient(ctx, client, weekStart, weekEnd)
		if err != nil {
			s.log.Error("client automation failed", "client_id", client.ID, "error", err)
			summary.Error = err.Error()
		}
		result.Results = append(result.Results, summary)
	}
	result.Processed = len(result.Results)
	result.Message = "Weekly review automation completed"

	s.log.Info("weekly automation finished", "processed", result.Processed)
	if s.notifier != nil && result.Processed > 0 {
		if err := s.notifier.NotifyRun(ctx, result); err != nil {
			s.log.Warn("run notification failed", "error", err)
		}
	}
	return result, nil
}

type uniquePatient struct {
	name       string
	email      string
	calendarID int64
}

func (s *AutomationService) runClient(parent context.Context, client *models.Client, weekStart, weekEnd time.Time) (ClientRunSummary, error) {
	summary := ClientRunSummary{ClientName: client.Name}
	ctx, cancel := context.WithTimeout(parent, s.clientTimeout)
	defer cancel()

	calendarLocation := make(map[int64]uuid.UUID)
	for _, loc := range client.Locations {
		for _, calID := range loc.AcuityCalendarIDs {
			calendarLocation[calID] = loc.ID
		}
	}

	appointments := s.fetchAll(ctx, client, weekStart, weekEnd)
	patients := dedupAppointments(appointments, client.AcuityAppointmentTypeIDs)
	summary.AppointmentsFound = len(patients)

	batch := models.SendBatch{
		ClientID:  client.ID,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Status:    models.BatchProcessing,
	}
	if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return summary, fmt.Errorf("create batch: %w", err)
	}

	// Patients are only gated while the run is live. Anyone who passes the
	// gate is emailed even if the run is cancelled afterwards, since a
	// registered patient is never offered again.
	var fresh []uniquePatient
	for _, p := range patients {
		if ctx.Err() != nil {
			break
		}
		first, last := utils.SplitName(p.name)
		isNew, err := s.patients.RegisterIfNew(ctx, PatientInput{
			ClientID:  client.ID,
			Email:     p.email,
			FirstName: first,
			LastName:  last,
			Source:    models.SourceAcuityAuto,
		})
		if err != nil {
			s.log.Warn("dedup gate failed", "client_id", client.ID, "error", err)
			continue
		}
		if isNew {
			fresh = append(fresh, p)
		}
	}
	summary.NewPatients = len(fresh)

	for _, p := range fresh {
		in := CreateInput{
			ClientID:      client.ID,
			CustomerName:  FirstNonEmpty(p.name, p.email),
			CustomerEmail: p.email,
			BatchID:       &batch.ID,
			Source:        models.SourceAcuityAuto,
		}
		if locID, ok := calendarLocation[p.calendarID]; ok {
			in.LocationID = &locID
		}
		sendCtx, cancelSend := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		_, err := s.reviews.Deliver(sendCtx, client, in)
		cancelSend()
		if err != nil {
			s.log.Warn("automated send failed", "client_id", client.ID, "error", err)
			continue
		}
		summary.EmailsSent++
	}

	status := models.BatchCompleted
	if ctx.Err() != nil {
		status = models.BatchFailed
	}
	finished := s.now()
	// Both the client deadline and the caller may be gone by now.
	fctx, cancelFinish := context.WithTimeout(context.WithoutCancel(parent), finalizeTimeout)
	defer cancelFinish()
	err := s.db.WithContext(fctx).Model(&models.SendBatch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"total_new":   summary.NewPatients,
			"total_sent":  summary.EmailsSent,
			"status":      status,
			"finished_at": finished,
		}).Error
	if err != nil {
		return summary, fmt.Errorf("finish batch: %w", err)
	}
	if status == models.BatchFailed {
		return summary, fmt.Errorf("client run interrupted: %w", ctx.Err())
	}
	return summary, nil
}

// fetchAll fetches every configured calendar concurrently. A calendar that
// fails is logged and contributes nothing.
func (s *AutomationService) fetchAll(ctx context.Context, client *models.Client, weekStart, weekEnd time.Time) []Appointment {
	calendars := client.AcuityCalendarIDs
	perCalendar := make([][]Appointment, len(calendars))

	var g errgroup.Group
	g.SetLimit(s.fetchLimit)
	for i, calID := range calendars {
		i, calID := i, calID
		g.Go(func() error {
			appts, err := s.source.Appointments(ctx, weekStart, weekEnd, calID)
			if err != nil {
				s.log.Warn("calendar fetch failed", "client_id", client.ID, "calendar_id", calID, "error", err)
				return nil
			}
			perCalendar[i] = appts
			return nil
		})
	}
	_ = g.Wait()

	var all []Appointment
	for _, appts := range perCalendar {
		all = append(all, appts...)
	}
	return all
}

// dedupAppointments keys appointments by normalized email. The last
// appointment seen for an email supplies the name and calendar, while the
// order of first appearance is kept. typeIDs, when set, is an allow-list.
func dedupAppointments(appts []Appointment, typeIDs []int64) []uniquePatient {
	allowed := make(map[int64]bool, len(typeIDs))
	for _, id := range typeIDs {
		allowed[id] = true
	}

	index := make(map[string]int)
	var out []uniquePatient
	for _, a := range appts {
		if len(allowed) > 0 && !allowed[a.AppointmentTypeID] {
			continue
		}
		email := utils.NormalizeEmail(a.Email)
		if email == "" || !utils.ValidateEmail(email) {
			continue
		}
		p := uniquePatient{
			name:       strings.TrimSpace(a.FirstName + " " + a.LastName),
			email:      email,
			calendarID: a.CalendarID,
		}
		if i, ok := index[email]; ok {
			out[i] = p
			continue
		}
		index[email] = len(out)
		out = append(out, p)
	}
	return out
}
