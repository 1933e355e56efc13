// Package scheduler drives recurring pipeline runs from a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"HKNewsDigest/internal/ports"
)

var _ ports.Scheduler = (*CronScheduler)(nil)

// CronScheduler triggers the registered job on a cron expression evaluated
// in the configured timezone.
type CronScheduler struct {
	expression string
	location   *time.Location
	logger     *slog.Logger

	cron *cron.Cron
}

// NewCron builds an idle scheduler; Start arms it.
func NewCron(expression string, location *time.Location, logger *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.Local
	}
	return &CronScheduler{
		expression: expression,
		location:   location,
		logger:     logger,
	}
}

// Start registers the job and begins firing it on schedule. Triggers carry
// the wall-clock time in the scheduler timezone.
func (s *CronScheduler) Start(_ context.Context, job func(time.Time)) error {
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	c := cron.New(cron.WithLocation(s.location))
	if _, err := c.AddFunc(s.expression, func() {
		job(time.Now().In(s.location))
	}); err != nil {
		return fmt.Errorf("register cron expression %q: %w", s.expression, err)
	}

	s.cron = c
	c.Start()
	if s.logger != nil {
		s.logger.Info("scheduler armed", "expression", s.expression, "timezone", s.location.String())
	}
	return nil
}

// Stop halts scheduling and waits for a running job to finish, bounded by
// the caller context.
func (s *CronScheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
