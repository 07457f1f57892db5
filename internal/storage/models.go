package storage

import (
	"database/sql"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

const jobColumns = `
	job_id, input_key, subject_id, requester_id, prompt, style,
	state, artifact, error_reason, created_at, updated_at`

const notificationColumns = `notification_id, job_id, consumer_id, read, created_at`

type jobRow struct {
	JobID       string         `db:"job_id"`
	InputKey    string         `db:"input_key"`
	SubjectID   string         `db:"subject_id"`
	RequesterID string         `db:"requester_id"`
	Prompt      string         `db:"prompt"`
	Style       string         `db:"style"`
	State       string         `db:"state"`
	Artifact    sql.NullString `db:"artifact"`
	ErrorReason sql.NullString `db:"error_reason"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r jobRow) toDomain() domain.Job {
	return domain.Job{
		ID:          r.JobID,
		InputKey:    r.InputKey,
		SubjectID:   r.SubjectID,
		RequesterID: r.RequesterID,
		Prompt:      r.Prompt,
		Style:       r.Style,
		State:       domain.State(r.State),
		Artifact:    r.Artifact.String,
		ErrorReason: r.ErrorReason.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type notificationRow struct {
	NotificationID string    `db:"notification_id"`
	JobID          string    `db:"job_id"`
	ConsumerID     string    `db:"consumer_id"`
	Read           bool      `db:"read"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r notificationRow) toDomain() domain.Notification {
	return domain.Notification{
		ID:         r.NotificationID,
		JobID:      r.JobID,
		ConsumerID: r.ConsumerID,
		Read:       r.Read,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
