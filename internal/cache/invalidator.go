package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/cuongbtq/mediajobs/internal/metrics"
)

// DefaultTTL is how long a cached view may stay stale when invalidation fails
const DefaultTTL = 60 * time.Second

const defaultInvalidateTimeout = 5 * time.Second

// Invalidator reacts to terminal events by asking the cache to drop the job's keys.
// It never blocks the caller and never reports a failure: a missed invalidation
// only means a stale read until the entry's TTL runs out.
type Invalidator struct {
	cache   domain.Cache
	timeout time.Duration
	metrics *metrics.Recorder
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewInvalidator creates a new Invalidator instance
func NewInvalidator(c domain.Cache, timeout time.Duration, rec *metrics.Recorder, logger *slog.Logger) *Invalidator {
	if timeout <= 0 {
		timeout = defaultInvalidateTimeout
	}
	return &Invalidator{
		cache:   c,
		timeout: timeout,
		metrics: rec,
		logger:  logger.With(slog.String("component", "cache_invalidator")),
	}
}

// HandleTerminal implements domain.TerminalHandler
func (i *Invalidator) HandleTerminal(ctx context.Context, ev domain.TerminalEvent) error {
	keys := KeysFor(ev.JobID, ev.InputKey)
	base := context.WithoutCancel(ctx)

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()

		ictx, cancel := context.WithTimeout(base, i.timeout)
		defer cancel()

		if err := i.cache.Invalidate(ictx, keys); err != nil {
			i.metrics.Invalidated(ictx, "error")
			i.logger.Warn("Cache invalidation failed, entries expire by TTL",
				slog.String("job_id", ev.JobID),
				slog.Any("keys", keys),
				slog.Any("error", err),
			)
			return
		}

		i.metrics.Invalidated(ictx, "ok")
		i.logger.Debug("Cache invalidated",
			slog.String("job_id", ev.JobID),
			slog.Any("keys", keys),
		)
	}()

	return nil
}

// Wait blocks until in-flight invalidations finish
func (i *Invalidator) Wait() {
	i.wg.Wait()
}
