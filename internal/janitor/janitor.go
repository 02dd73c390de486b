// Package janitor periodically removes expired verifications and sessions.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/accounts/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Purger deletes rows that expired at or before now and reports how many.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Janitor struct {
	purgers  map[string]Purger
	schedule cron.Schedule
	spec     string
	logger   *slog.Logger
	now      func() time.Time
}

// New validates spec (standard cron or a descriptor such as "@every 10m").
// purgers is keyed by the kind label used in logs and metrics.
func New(spec string, purgers map[string]Purger, logger *slog.Logger) (*Janitor, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", spec, err)
	}
	return &Janitor{
		purgers:  purgers,
		schedule: sched,
		spec:     spec,
		logger:   logger.With("component", "janitor"),
		now:      time.Now,
	}, nil
}

// Start sweeps once, then on every tick of the schedule until ctx is done.
// A sweep still running when the next tick fires makes that tick a no-op.
func (j *Janitor) Start(ctx context.Context) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(j.schedule, cron.FuncJob(func() { j.Sweep(ctx) }))

	j.logger.Info("janitor started", "schedule", j.spec)
	j.Sweep(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor shut down")
}

// Sweep runs every purger once. A failing purger does not stop the others.
func (j *Janitor) Sweep(ctx context.Context) map[string]int64 {
	start := time.Now()
	defer func() {
		metrics.JanitorCycleDuration.Observe(time.Since(start).Seconds())
	}()

	now := j.now()
	purged := make(map[string]int64, len(j.purgers))
	for kind, p := range j.purgers {
		n, err := p.DeleteExpired(ctx, now)
		if err != nil {
			j.logger.ErrorContext(ctx, "purge expired", "kind", kind, "error", err)
			continue
		}
		purged[kind] = n
		if n > 0 {
			metrics.JanitorPurgedTotal.WithLabelValues(kind).Add(float64(n))
			j.logger.InfoContext(ctx, "purged expired rows", "kind", kind, "count", n)
		}
	}
	return purged
}
