package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// NotificationRepository persists job subscriptions and notifications in PostgreSQL
type NotificationRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewNotificationRepository creates a new NotificationRepository instance
func NewNotificationRepository(db *sqlx.DB, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Subscribe registers consumers for a job's outcome. Re-subscribing is a no-op.
func (r *NotificationRepository) Subscribe(ctx context.Context, jobID string, consumerIDs []string, at time.Time) error {
	if len(consumerIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO job_subscriptions (job_id, consumer_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id, consumer_id) DO NOTHING
	`
	for _, consumerID := range consumerIDs {
		if _, err := tx.ExecContext(ctx, query, jobID, consumerID, at); err != nil {
			return fmt.Errorf("failed to subscribe consumer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit subscriptions: %w", err)
	}

	return nil
}

// Subscribers returns the consumers registered for a job.
func (r *NotificationRepository) Subscribers(ctx context.Context, jobID string) ([]string, error) {
	query := `
		SELECT consumer_id
		FROM job_subscriptions
		WHERE job_id = $1
		ORDER BY created_at ASC, consumer_id ASC
	`

	var consumers []string
	if err := r.db.SelectContext(ctx, &consumers, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	return consumers, nil
}

// InsertIfAbsent stores n unless a notification for (n.JobID, n.ConsumerID) exists.
func (r *NotificationRepository) InsertIfAbsent(ctx context.Context, n domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (notification_id, job_id, consumer_id, read, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (job_id, consumer_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, n.ID, n.JobID, n.ConsumerID, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// List returns a consumer's notifications newest first.
func (r *NotificationRepository) List(ctx context.Context, consumerID string, page domain.Page) ([]domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE consumer_id = $1
	`
	args := []interface{}{consumerID}
	argIdx := 2

	if page.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, notification_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, page.Cursor.CreatedAt, page.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, notification_id DESC"

	if page.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, page.Limit)
	}

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]domain.Notification, len(rows))
	for i, row := range rows {
		notifications[i] = row.toDomain()
	}
	return notifications, nil
}

// UnreadCount returns the number of unread notifications for a consumer.
func (r *NotificationRepository) UnreadCount(ctx context.Context, consumerID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE consumer_id = $1 AND read = FALSE
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, consumerID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead marks one notification read on behalf of its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, consumerID string) error {
	if _, err := uuid.Parse(notificationID); err != nil {
		return domain.ErrNotFound
	}

	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE notification_id = $1 AND consumer_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, notificationID, consumerID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	// Nothing matched: either the id is unknown or it belongs to someone else.
	var owner string
	err = r.db.GetContext(ctx, &owner, `SELECT consumer_id FROM notifications WHERE notification_id = $1`, notificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to get notification owner: %w", err)
	}

	r.logger.Warn("Notification owned by another consumer",
		slog.String("notification_id", notificationID),
		slog.String("consumer_id", consumerID),
	)
	return domain.ErrForbidden
}

// MarkAllRead marks every unread notification of a consumer read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, consumerID string) (int, error) {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE consumer_id = $1 AND read = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, consumerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
