// Package notify creates at most one notification per (job, consumer) when a
// job finishes and serves the consumer read operations.
package notify

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

// Repository is the notification store contract. Both storage.NotificationRepository
// and storage.MemoryNotificationRepository satisfy it.
type Repository interface {
	Subscribe(ctx context.Context, jobID string, consumerIDs []string, at time.Time) error
	Subscribers(ctx context.Context, jobID string) ([]string, error)
	InsertIfAbsent(ctx context.Context, n domain.Notification) (bool, error)
	List(ctx context.Context, consumerID string, page domain.Page) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, consumerID string) (int, error)
	MarkRead(ctx context.Context, notificationID, consumerID string) error
	MarkAllRead(ctx context.Context, consumerID string) (int, error)
}

// Dispatcher turns terminal events into notifications
type Dispatcher struct {
	repo    Repository
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(repo Repository, rec *metrics.Recorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		metrics: rec,
		logger:  logger.With(slog.String("component", "notify")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register records the consumers interested in a job's outcome.
func (d *Dispatcher) Register(ctx context.Context, jobID string, consumerIDs []string) error {
	if err := d.repo.Subscribe(ctx, jobID, consumerIDs, d.now()); err != nil {
		return fmt.Errorf("failed to register subscribers: %w", err)
	}
	return nil
}

// HandleTerminal implements domain.TerminalHandler. Redelivery of the same event
// creates nothing new. Every subscriber is attempted even if some inserts fail.
func (d *Dispatcher) HandleTerminal(ctx context.Context, ev domain.TerminalEvent) error {
	consumers, err := d.repo.Subscribers(ctx, ev.JobID)
	if err != nil {
		return fmt.Errorf("failed to load subscribers: %w", err)
	}

	var (
		created int
		errs    []error
	)
	for _, consumerID := range consumers {
		ok, err := d.repo.InsertIfAbsent(ctx, domain.Notification{
			ID:         uuid.NewString(),
			JobID:      ev.JobID,
			ConsumerID: consumerID,
			CreatedAt:  d.now(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("consumer %s: %w", consumerID, err))
			continue
		}
		if ok {
			created++
		}
	}

	d.metrics.NotificationsCreated(ctx, created)

	d.logger.Info("Terminal event dispatched",
		slog.String("job_id", ev.JobID),
		slog.String("state", string(ev.State)),
		slog.Int("subscribers", len(consumers)),
		slog.Int("created", created),
	)

	if len(errs) > 0 {
		return fmt.Errorf("failed to create notifications: %w", errors.Join(errs...))
	}
	return nil
}

// List returns a consumer's notifications newest first
func (d *Dispatcher) List(ctx context.Context, consumerID string, page domain.Page) ([]domain.Notification, error) {
	return d.repo.List(ctx, consumerID, page)
}

// UnreadCount returns how many of a consumer's notifications are unread
func (d *Dispatcher) UnreadCount(ctx context.Context, consumerID string) (int, error) {
	return d.repo.UnreadCount(ctx, consumerID)
}

// MarkRead fails with domain.ErrNotFound or domain.ErrForbidden when the
// notification is unknown or owned by another consumer.
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, consumerID string) error {
	return d.repo.MarkRead(ctx, notificationID, consumerID)
}

// MarkAllRead returns the number of notifications that changed
func (d *Dispatcher) MarkAllRead(ctx context.Context, consumerID string) (int, error) {
	return d.repo.MarkAllRead(ctx, consumerID)
}
