package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// parser accepts standard five field specs plus descriptors such as
// "@every 10m" and "@hourly".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a refresh schedule.
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Schedule runs periodic full refreshes.
type Schedule struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSchedule creates a schedule calling refresh on every tick of spec.
// Overlapping ticks are skipped while a refresh is still running.
func NewSchedule(ctx context.Context, spec string, refresh RefreshFunc, logger *slog.Logger) (*Schedule, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		logger.Debug("scheduled refresh", "schedule", spec)
		if err := refresh(ctx, nil); err != nil {
			logger.Warn("scheduled refresh failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Schedule{cron: c, logger: logger}, nil
}

// Start begins running the schedule in its own goroutine.
func (s *Schedule) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Schedule) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of scheduled jobs.
func (s *Schedule) Entries() int {
	return len(s.cron.Entries())
}
