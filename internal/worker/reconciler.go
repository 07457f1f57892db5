package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// ReconcileRepository lists jobs that may need another look
type ReconcileRepository interface {
	ListTerminalSince(ctx context.Context, since time.Time, limit int) ([]domain.Job, error)
	ListStale(ctx context.Context, state domain.State, before time.Time, limit int) ([]domain.Job, error)
}

// ReconcilerConfig holds reconciler timings
type ReconcilerConfig struct {
	Interval            time.Duration
	TerminalLookback    time.Duration
	PendingRequeueAfter time.Duration
	ProcessingTimeout   time.Duration
	BatchSize           int
}

// Reconciler repairs what at-most-once side effects can miss:
//   - terminal jobs are re-dispatched so notifications lost to store errors get created
//   - Pending jobs nobody claimed are handed off again
//   - Processing jobs whose worker vanished are failed with reason "timeout"
type Reconciler struct {
	repo     ReconcileRepository
	notifier domain.TerminalHandler
	handoff  domain.Worker
	advancer Advancer
	cfg      ReconcilerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconciler creates a new Reconciler instance
func NewReconciler(repo ReconcileRepository, notifier domain.TerminalHandler, handoff domain.Worker, advancer Advancer, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Reconciler{
		repo:     repo,
		notifier: notifier,
		handoff:  handoff,
		advancer: advancer,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "reconciler")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run reconciles every interval until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("Reconciler started", slog.Duration("interval", r.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reconciliation pass
func (r *Reconciler) RunOnce(ctx context.Context) {
	now := r.now()

	if r.cfg.TerminalLookback > 0 {
		r.redispatchTerminal(ctx, now.Add(-r.cfg.TerminalLookback))
	}
	if r.cfg.PendingRequeueAfter > 0 {
		r.requeuePending(ctx, now.Add(-r.cfg.PendingRequeueAfter))
	}
	if r.cfg.ProcessingTimeout > 0 {
		r.failAbandoned(ctx, now.Add(-r.cfg.ProcessingTimeout))
	}
}

func (r *Reconciler) redispatchTerminal(ctx context.Context, since time.Time) {
	jobs, err := r.repo.ListTerminalSince(ctx, since, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("Failed to list terminal jobs", slog.Any("error", err))
		return
	}
	if len(jobs) == r.cfg.BatchSize {
		r.logger.Warn("Terminal re-dispatch batch is full; older jobs in the lookback are skipped this pass",
			slog.Int("batch_size", r.cfg.BatchSize),
		)
	}

	for _, job := range jobs {
		if err := r.notifier.HandleTerminal(ctx, domain.TerminalEventFor(job)); err != nil {
			r.logger.Error("Failed to re-dispatch terminal job",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (r *Reconciler) requeuePending(ctx context.Context, before time.Time) {
	jobs, err := r.repo.ListStale(ctx, domain.StatePending, before, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("Failed to list stale pending jobs", slog.Any("error", err))
		return
	}

	for _, job := range jobs {
		if err := r.handoff.Process(ctx, job.View()); err != nil {
			r.logger.Error("Failed to requeue pending job",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
			continue
		}
		r.logger.Warn("Requeued unclaimed job",
			slog.String("job_id", job.ID),
			slog.Time("created_at", job.CreatedAt),
		)
	}
}

func (r *Reconciler) failAbandoned(ctx context.Context, before time.Time) {
	jobs, err := r.repo.ListStale(ctx, domain.StateProcessing, before, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("Failed to list stale processing jobs", slog.Any("error", err))
		return
	}

	for _, job := range jobs {
		if _, err := r.advancer.Advance(ctx, job.ID, domain.Failed(FailureTimeout)); err != nil {
			r.logger.Error("Failed to fail abandoned job",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
			continue
		}
		r.logger.Warn("Failed abandoned job",
			slog.String("job_id", job.ID),
			slog.Time("updated_at", job.UpdatedAt),
		)
	}
}
