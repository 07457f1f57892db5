// Package orchestrator accepts generation submissions, answers status queries
// and applies worker progress to jobs.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/cuongbtq/mediajobs/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// JobStore is the job record the orchestrator drives. *jobstore.Store satisfies it.
type JobStore interface {
	CreateOrGet(ctx context.Context, sub domain.Submission) (domain.Job, bool, error)
	Get(ctx context.Context, jobID string) (domain.Job, error)
	Transition(ctx context.Context, jobID string, ev domain.Event) (domain.Job, error)
	List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
}

// Notifier records who hears about a job and can dispatch a finished job on demand.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	Register(ctx context.Context, jobID string, consumerIDs []string) error
	HandleTerminal(ctx context.Context, ev domain.TerminalEvent) error
}

// Orchestrator is the submission and polling entry point
type Orchestrator struct {
	store    JobStore
	worker   domain.Worker
	subs     domain.SubscriptionSource
	notifier Notifier
	metrics  *metrics.Recorder
	logger   *slog.Logger

	// collapses identical submissions arriving at this instance at the same
	// moment; cross-instance uniqueness comes from the store
	group singleflight.Group
}

// New creates a new Orchestrator instance
func New(store JobStore, worker domain.Worker, subs domain.SubscriptionSource, notifier Notifier, rec *metrics.Recorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		worker:   worker,
		subs:     subs,
		notifier: notifier,
		metrics:  rec,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

type createResult struct {
	job     domain.Job
	created bool
	handoff sync.Once
}

// Submit creates a job for the submission or joins the active job with the same
// input key. The returned view looks the same either way.
func (o *Orchestrator) Submit(ctx context.Context, sub domain.Submission) (domain.JobView, error) {
	sub, err := sub.Normalize()
	if err != nil {
		return domain.JobView{}, err
	}

	// the shared call outlives any single caller; one canceled request must not
	// fail the others waiting on it
	shared := context.WithoutCancel(ctx)
	v, err, _ := o.group.Do(sub.InputKey(), func() (interface{}, error) {
		job, created, err := o.store.CreateOrGet(shared, sub)
		if err != nil {
			return nil, err
		}
		return &createResult{job: job, created: created}, nil
	})
	if err != nil {
		return domain.JobView{}, fmt.Errorf("failed to create job: %w", err)
	}
	res := v.(*createResult)
	job := res.job

	consumers, err := o.subs.Subscribers(ctx, sub)
	if err != nil {
		return domain.JobView{}, fmt.Errorf("failed to resolve subscribers: %w", err)
	}
	if err := o.notifier.Register(ctx, job.ID, consumers); err != nil {
		return domain.JobView{}, err
	}

	outcome := "joined"
	if res.created {
		res.handoff.Do(func() {
			outcome = "created"
			o.handoff(shared, job)
		})
	}
	o.metrics.Submitted(ctx, outcome)

	// the job may have finished before our subscribers were recorded
	current, err := o.store.Get(ctx, job.ID)
	if err != nil {
		return domain.JobView{}, err
	}
	if current.State.Terminal() {
		if err := o.notifier.HandleTerminal(ctx, domain.TerminalEventFor(current)); err != nil {
			o.logger.Error("Failed to notify late subscribers",
				slog.String("job_id", current.ID),
				slog.Any("error", err),
			)
		}
	}

	return current.View(), nil
}

// handoff passes a new job to the worker. A failed handoff leaves the job Pending
// for the reconciler to pick up again.
func (o *Orchestrator) handoff(ctx context.Context, job domain.Job) {
	if err := o.worker.Process(ctx, job.View()); err != nil {
		o.logger.Error("Failed to hand job to worker",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
		return
	}
	o.logger.Info("Job handed to worker", slog.String("job_id", job.ID))
}

// Status returns the current view of a job or domain.ErrNotFound
func (o *Orchestrator) Status(ctx context.Context, jobID string) (domain.JobView, error) {
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		return domain.JobView{}, err
	}
	return job.View(), nil
}

// Advance applies a worker-reported event to a job. Illegal moves are returned
// to the worker as *domain.TransitionError and never retried here.
func (o *Orchestrator) Advance(ctx context.Context, jobID string, ev domain.Event) (domain.JobView, error) {
	job, err := o.store.Transition(ctx, jobID, ev)
	if err != nil {
		return domain.JobView{}, err
	}
	return job.View(), nil
}

// List returns a page of jobs newest first. hasMore reports whether another page exists.
func (o *Orchestrator) List(ctx context.Context, filter domain.JobFilter) (jobs []domain.Job, hasMore bool, err error) {
	jobs, err = o.store.List(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	if len(jobs) > filter.PageSize {
		return jobs[:filter.PageSize], true, nil
	}
	return jobs, false, nil
}
