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

// maxCreateAttempts bounds the insert/select loop in CreateOrGet. Another attempt
// is only needed when the active job for a key turns terminal between the two statements.
const maxCreateAttempts = 3

// JobRepository persists generation jobs in PostgreSQL
type JobRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewJobRepository creates a new JobRepository instance
func NewJobRepository(db *sqlx.DB, logger *slog.Logger) *JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

// CreateOrGet inserts job unless an active job already holds its input key, in which
// case the active job is returned with created=false. The partial unique index on
// input_key makes this atomic across service instances.
func (r *JobRepository) CreateOrGet(ctx context.Context, job domain.Job) (domain.Job, bool, error) {
	insertQuery := `
		INSERT INTO generation_jobs (
			job_id, input_key, subject_id, requester_id, prompt, style,
			state, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9
		)
		ON CONFLICT (input_key) WHERE state IN ('PENDING', 'PROCESSING') DO NOTHING
		RETURNING ` + jobColumns

	activeQuery := `
		SELECT ` + jobColumns + `
		FROM generation_jobs
		WHERE input_key = $1
		  AND state IN ('PENDING', 'PROCESSING')
		LIMIT 1
	`

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		var row jobRow
		err := r.db.GetContext(ctx, &row, insertQuery,
			job.ID,
			job.InputKey,
			job.SubjectID,
			job.RequesterID,
			job.Prompt,
			job.Style,
			string(job.State),
			job.CreatedAt,
			job.UpdatedAt,
		)
		if err == nil {
			return row.toDomain(), true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, false, fmt.Errorf("failed to create job: %w", err)
		}

		err = r.db.GetContext(ctx, &row, activeQuery, job.InputKey)
		if err == nil {
			return row.toDomain(), false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, false, fmt.Errorf("failed to get active job: %w", err)
		}

		r.logger.Debug("Active job finished during create, retrying",
			slog.String("input_key", job.InputKey),
			slog.Int("attempt", attempt),
		)
	}

	return domain.Job{}, false, fmt.Errorf("failed to create job: input key %s still contended after %d attempts", job.InputKey, maxCreateAttempts)
}

// GetJobByID retrieves a job from the database by its ID
func (r *JobRepository) GetJobByID(ctx context.Context, jobID string) (domain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return domain.Job{}, domain.ErrNotFound
	}

	query := `
		SELECT ` + jobColumns + `
		FROM generation_jobs
		WHERE job_id = $1
	`

	var row jobRow
	if err := r.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, domain.ErrNotFound
		}
		return domain.Job{}, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toDomain(), nil
}

// CompareAndSwap writes next only if the stored job is still in state expected.
// swapped=false means another writer moved the job first (or it does not exist).
func (r *JobRepository) CompareAndSwap(ctx context.Context, expected domain.State, next domain.Job) (domain.Job, bool, error) {
	query := `
		UPDATE generation_jobs
		SET state = $1,
			artifact = $2,
			error_reason = $3,
			updated_at = $4
		WHERE job_id = $5
		  AND state = $6
		RETURNING ` + jobColumns

	var row jobRow
	err := r.db.GetContext(ctx, &row, query,
		string(next.State),
		nullString(next.Artifact),
		nullString(next.ErrorReason),
		next.UpdatedAt,
		next.ID,
		string(expected),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Job state changed concurrently",
				slog.String("job_id", next.ID),
				slog.String("expected_state", string(expected)),
			)
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, fmt.Errorf("failed to update job state: %w", err)
	}

	r.logger.Info("Job state updated",
		slog.String("job_id", next.ID),
		slog.String("from", string(expected)),
		slog.String("to", string(next.State)),
	)

	return row.toDomain(), true, nil
}

// ListJobs lists jobs newest first using keyset pagination. One extra row beyond
// PageSize is returned so callers can tell whether another page exists.
func (r *JobRepository) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM generation_jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.RequesterID != "" {
		query += fmt.Sprintf(" AND requester_id = $%d", argIdx)
		args = append(args, filter.RequesterID)
		argIdx++
	}

	if filter.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, string(filter.State))
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return toDomainJobs(rows), nil
}

// ListTerminalSince returns jobs that reached a terminal state at or after since, newest first.
func (r *JobRepository) ListTerminalSince(ctx context.Context, since time.Time, limit int) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM generation_jobs
		WHERE state IN ('COMPLETED', 'FAILED')
		  AND updated_at >= $1
		ORDER BY updated_at DESC, job_id DESC
		LIMIT $2
	`

	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, query, since, limit); err != nil {
		return nil, fmt.Errorf("failed to list terminal jobs: %w", err)
	}

	return toDomainJobs(rows), nil
}

// ListStale returns jobs still in state whose last update is older than before, oldest first.
func (r *JobRepository) ListStale(ctx context.Context, state domain.State, before time.Time, limit int) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM generation_jobs
		WHERE state = $1
		  AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`

	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, query, string(state), before, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	return toDomainJobs(rows), nil
}

func toDomainJobs(rows []jobRow) []domain.Job {
	jobs := make([]domain.Job, len(rows))
	for i, row := range rows {
		jobs[i] = row.toDomain()
	}
	return jobs
}
