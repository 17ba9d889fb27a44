// Package jobs runs background maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"sqlgate/internal/service"
)

// DefaultSweepSchedule expires overdue exceptions once a minute.
const DefaultSweepSchedule = "* * * * *"

// Sweeper marks approved policy exceptions whose window has closed as
// expired. The decision path never honors a closed window, so the sweep
// only keeps stored statuses in line with reality.
type Sweeper struct {
	cron       *cron.Cron
	exceptions *service.ExceptionService
	logger     *slog.Logger
	schedule   string
}

// NewSweeper creates a Sweeper on the given cron schedule. An empty
// schedule falls back to DefaultSweepSchedule.
func NewSweeper(exceptions *service.ExceptionService, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		cron:       cron.New(),
		exceptions: exceptions,
		logger:     logger,
		schedule:   schedule,
	}
}

// Start registers the sweep and starts the cron scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("exception sweeper started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.logger.Info("exception sweeper stopped")
}

// RunOnce performs a single sweep. Failures are logged and swallowed;
// the next tick retries.
func (s *Sweeper) RunOnce(ctx context.Context) {
	n, err := s.exceptions.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Warn("exception sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired overdue exceptions", "count", n)
	}
}
