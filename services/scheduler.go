package services

import (
	"context"
	"fmt"

	"reviewflow-backend/utils"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the weekly automation on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	automation *AutomationService
	log        *utils.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewScheduler(spec string, automation *AutomationService, log *utils.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		automation: automation,
		log:        log.With("service", "Scheduler"),
		ctx:        ctx,
		cancel:     cancel,
	}
	if _, err := s.cron.AddFunc(spec, s.runWeekly); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid automation schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runWeekly() {
	result, err := s.automation.RunWeekly(s.ctx)
	if err != nil {
		s.log.Error("scheduled automation failed", "error", err)
		return
	}
	s.log.Info("scheduled automation done", "message", result.Message, "processed", result.Processed)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("automation scheduler started")
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
