package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
)

// Submitter queues a discovery job for a theme
type Submitter interface {
	Submit(ctx context.Context, topic string) (string, error)
}

// Service implements SchedulerService interface
type Service struct {
	submitter Submitter
	themes    []string
	cron      *cron.Cron
	logger    arbor.ILogger

	mu        sync.Mutex
	running   bool
	schedule  string
	entryID   cron.EntryID
	lastRun   *time.Time
	lastError string
	ticking   bool
}

var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates a scheduler that submits themes through submitter on every tick
func NewService(submitter Submitter, themes []string, logger arbor.ILogger) *Service {
	return &Service{
		submitter: submitter,
		themes:    append([]string(nil), themes...),
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start begins the scheduler with the given cron expression
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if cronExpr == "" {
		return fmt.Errorf("cron expression is required")
	}

	id, err := s.cron.AddFunc(cronExpr, s.tick)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = id
	s.schedule = cronExpr
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Strs("themes", s.themes).
		Msg("Scheduler started")

	return nil
}

// Stop halts the scheduler
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	// Waits for a tick in progress
	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// TriggerNow submits every configured theme immediately
func (s *Service) TriggerNow(ctx context.Context) error {
	return s.submitAll(ctx)
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a snapshot of the schedule
func (s *Service) Status() interfaces.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := interfaces.ScheduleStatus{
		Schedule:  s.schedule,
		Themes:    append([]string(nil), s.themes...),
		IsRunning: s.ticking,
		LastError: s.lastError,
	}
	if s.lastRun != nil {
		lastRun := *s.lastRun
		status.LastRun = &lastRun
	}
	if s.running {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

func (s *Service) tick() {
	if err := s.submitAll(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled submission finished with errors")
	}
}

// submitAll queues every theme; failures are collected and do not stop later themes
func (s *Service) submitAll(ctx context.Context) error {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		s.logger.Debug().Msg("Previous scheduled submission still running, skipping")
		return nil
	}
	s.ticking = true
	s.mu.Unlock()

	var errs []error
	for _, theme := range s.themes {
		jobID, err := s.submitter.Submit(ctx, theme)
		if err != nil {
			errs = append(errs, fmt.Errorf("theme %q: %w", theme, err))
			continue
		}
		s.logger.Info().
			Str("theme", theme).
			Str("job_id", jobID).
			Msg("Scheduled job submitted")
	}
	err := errors.Join(errs...)

	now := time.Now()
	s.mu.Lock()
	s.ticking = false
	s.lastRun = &now
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	return err
}
