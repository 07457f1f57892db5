// Package jobstore is the durable job record: de-duplicated creation, reads,
// and state transitions checked by the domain state machine.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/cuongbtq/mediajobs/internal/metrics"
	"github.com/google/uuid"
)

// maxTransitionAttempts bounds compare-and-swap retries when another writer
// moves the job between our read and our write.
const maxTransitionAttempts = 3

// ErrConflict is returned when the job keeps changing under a transition.
var ErrConflict = errors.New("job modified concurrently")

// Repository is the persistence contract the store needs. Both
// storage.JobRepository and storage.MemoryJobRepository satisfy it.
type Repository interface {
	CreateOrGet(ctx context.Context, job domain.Job) (domain.Job, bool, error)
	GetJobByID(ctx context.Context, jobID string) (domain.Job, error)
	CompareAndSwap(ctx context.Context, expected domain.State, next domain.Job) (domain.Job, bool, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
}

// Store owns job creation and state changes
type Store struct {
	repo      Repository
	publisher domain.TerminalPublisher
	metrics   *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records applied transitions
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a new Store instance
func New(repo Repository, publisher domain.TerminalPublisher, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "jobstore")),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrGet returns the active job for the submission's input key, creating a
// Pending one if none exists. created reports which of the two happened.
func (s *Store) CreateOrGet(ctx context.Context, sub domain.Submission) (domain.Job, bool, error) {
	now := s.now()
	job := domain.Job{
		ID:          uuid.NewString(),
		InputKey:    sub.InputKey(),
		SubjectID:   sub.SubjectID,
		RequesterID: sub.RequesterID,
		Prompt:      sub.Prompt,
		Style:       sub.Style,
		State:       domain.StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	got, created, err := s.repo.CreateOrGet(ctx, job)
	if err != nil {
		return domain.Job{}, false, err
	}

	if created {
		s.logger.Info("Job created",
			slog.String("job_id", got.ID),
			slog.String("input_key", got.InputKey),
		)
	} else {
		s.logger.Debug("Submission joined active job",
			slog.String("job_id", got.ID),
			slog.String("state", string(got.State)),
		)
	}

	return got, created, nil
}

// Get returns the job with the given id or domain.ErrNotFound
func (s *Store) Get(ctx context.Context, jobID string) (domain.Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

// List returns jobs newest first, one more than filter.PageSize when another page exists
func (s *Store) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	return s.repo.ListJobs(ctx, filter)
}

// Transition applies ev to the job. Illegal moves fail with a *domain.TransitionError
// and leave the stored job untouched. A move into a terminal state publishes a
// terminal event after it is durable.
func (s *Store) Transition(ctx context.Context, jobID string, ev domain.Event) (domain.Job, error) {
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		current, err := s.repo.GetJobByID(ctx, jobID)
		if err != nil {
			return domain.Job{}, err
		}

		next, err := domain.Apply(current, ev, s.now())
		if err != nil {
			s.logger.Warn("Rejected transition",
				slog.String("job_id", jobID),
				slog.String("state", string(current.State)),
				slog.String("event", ev.String()),
				slog.String("error", err.Error()),
			)
			return domain.Job{}, err
		}

		updated, swapped, err := s.repo.CompareAndSwap(ctx, current.State, next)
		if err != nil {
			return domain.Job{}, err
		}
		if !swapped {
			// re-read and validate against whatever the other writer left behind
			continue
		}

		s.metrics.Transitioned(ctx, string(updated.State))

		if updated.State.Terminal() {
			s.publisher.PublishTerminal(ctx, domain.TerminalEventFor(updated))
		}
		return updated, nil
	}

	return domain.Job{}, fmt.Errorf("failed to transition job %s: %w", jobID, ErrConflict)
}
