// Package scheduler triggers scrape runs on a cron schedule.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/newswire/internal/types"
)

// Starter begins a scrape run without blocking.
type Starter interface {
	Start() (string, error)
}

// Scheduler starts a run on every tick of a standard 5-field cron expression.
// A tick that lands while a run is in progress is skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	starter Starter
	logger  *slog.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	started bool
}

// New creates a scheduler for spec. It fails if spec does not parse.
func New(spec string, starter Starter, logger *slog.Logger) (*Scheduler, error) {
	logger = logger.With("component", "scheduler")
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	s := &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cronLogger))),
		spec:    spec,
		starter: starter,
		logger:  logger,
	}
	return s, nil
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	id, err := s.cron.AddFunc(s.spec, s.Trigger)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.entry = id
	s.started = true
	s.cron.Start()

	s.logger.Info("scheduler started", "cron", s.spec, "next", s.cron.Entry(id).Next)
	return nil
}

// Stop halts the cron loop. A run already started keeps going.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)
	s.started = false
	s.logger.Info("scheduler stopped")
}

// Trigger starts one run now. It is what every tick calls.
func (s *Scheduler) Trigger() {
	runID, err := s.starter.Start()
	switch {
	case errors.Is(err, types.ErrAlreadyRunning):
		s.logger.Info("scheduled run skipped", "reason", types.MsgAlreadyRunning)
	case err != nil:
		s.logger.Error("scheduled run failed to start", "error", err)
	default:
		s.logger.Info("scheduled run started", "run_id", runID)
	}
}
