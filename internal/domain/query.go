package domain

import "time"

// JobFilter narrows a job listing. Results are ordered newest first.
type JobFilter struct {
	RequesterID string
	State       State
	PageSize    int
	Cursor      *JobCursor
}

// JobCursor is a keyset position in a newest-first job listing.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// NotificationCursor is a keyset position in a consumer's newest-first list.
type NotificationCursor struct {
	CreatedAt time.Time
	ID        string
}

// Page bounds a notification list query. A zero Limit means no limit.
type Page struct {
	Limit  int
	Cursor *NotificationCursor
}
