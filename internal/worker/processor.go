package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// FailureTimeout is the error reason recorded when generation exceeds the job timeout
const FailureTimeout = "timeout"

// JobReader loads the full job record
type JobReader interface {
	Get(ctx context.Context, jobID string) (domain.Job, error)
}

// Advancer reports progress on a job. *orchestrator.Orchestrator satisfies it.
type Advancer interface {
	Advance(ctx context.Context, jobID string, ev domain.Event) (domain.JobView, error)
}

// Transitioner applies events on the job store. *jobstore.Store satisfies it.
type Transitioner interface {
	Transition(ctx context.Context, jobID string, ev domain.Event) (domain.Job, error)
}

// StoreAdvancer advances jobs straight through the job store, for processes
// that run workers without an orchestrator
type StoreAdvancer struct {
	Store Transitioner
}

// Advance implements Advancer
func (a StoreAdvancer) Advance(ctx context.Context, jobID string, ev domain.Event) (domain.JobView, error) {
	job, err := a.Store.Transition(ctx, jobID, ev)
	if err != nil {
		return domain.JobView{}, err
	}
	return job.View(), nil
}

// Generator renders a job and returns its artifact reference
type Generator interface {
	Generate(ctx context.Context, job domain.Job) (string, error)
}

// Processor drives one job from Pending to a terminal state
type Processor struct {
	jobs       JobReader
	advancer   Advancer
	generator  Generator
	jobTimeout time.Duration
	logger     *slog.Logger
}

const defaultJobTimeout = 5 * time.Minute

// NewProcessor creates a new Processor instance
func NewProcessor(jobs JobReader, advancer Advancer, generator Generator, jobTimeout time.Duration, logger *slog.Logger) *Processor {
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	return &Processor{
		jobs:       jobs,
		advancer:   advancer,
		generator:  generator,
		jobTimeout: jobTimeout,
		logger:     logger.With(slog.String("component", "processor")),
	}
}

// Process claims the job with a started event, renders it within the job
// timeout and reports the outcome. A job that is no longer Pending was claimed
// elsewhere and is skipped without error.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to load job: %w", err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to load job: %w", err))
	}

	if job.State != domain.StatePending {
		p.logger.Info("Job already claimed, skipping",
			slog.String("job_id", jobID),
			slog.String("state", string(job.State)),
		)
		return nil
	}

	if _, err := p.advancer.Advance(ctx, jobID, domain.Started()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			p.logger.Info("Lost claim race, skipping", slog.String("job_id", jobID))
			return nil
		}
		return domain.NewRetryableError(fmt.Errorf("failed to start job: %w", err))
	}

	p.logger.Info("Processing job", slog.String("job_id", jobID))

	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	artifact, genErr := p.generator.Generate(jobCtx, job)

	var ev domain.Event
	switch {
	case genErr == nil:
		ev = domain.Completed(artifact)
	case errors.Is(genErr, context.DeadlineExceeded):
		ev = domain.Failed(FailureTimeout)
	case ctx.Err() != nil:
		// shutting down; the job stays Processing and the reconciler fails it later
		return fmt.Errorf("job interrupted: %w", ctx.Err())
	default:
		ev = domain.Failed(genErr.Error())
	}

	// the job's outcome must be recorded even if the caller is going away
	view, err := p.advancer.Advance(context.WithoutCancel(ctx), jobID, ev)
	if err != nil {
		return fmt.Errorf("failed to record job outcome: %w", err)
	}

	p.logger.Info("Job finished",
		slog.String("job_id", jobID),
		slog.String("state", string(view.State)),
		slog.String("artifact", view.Artifact),
		slog.String("error_reason", view.ErrorReason),
	)
	return nil
}
