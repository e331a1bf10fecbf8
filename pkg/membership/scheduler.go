package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/taskforge/pkg/observability"
)

// DefaultSchedule runs the lead consistency check hourly
const DefaultSchedule = "@every 1h"

// Scheduler runs the consistency checker on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	checker *ConsistencyChecker
	logger  *observability.Logger
	repair  bool
	timeout time.Duration
}

// NewScheduler registers the check on schedule. Each run is bounded by
// timeout when it is positive.
func NewScheduler(checker *ConsistencyChecker, schedule string, repair bool, timeout time.Duration, logger *observability.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s := &Scheduler{
		cron:    cron.New(),
		checker: checker,
		logger:  logger,
		repair:  repair,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("failed to schedule consistency check %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	defer observability.RecoverPanic(s.logger, "lead consistency job")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.checker.Run(ctx, s.repair); err != nil {
		s.logger.WithError(err).Error("Team lead consistency check failed")
	}
}

// Start begins running scheduled checks in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running check, or ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
