package domain

import "time"

// Notification tells a consumer that a job it is subscribed to finished.
// At most one exists per (JobID, ConsumerID).
type Notification struct {
	ID         string
	JobID      string
	ConsumerID string
	Read       bool
	CreatedAt  time.Time
}
