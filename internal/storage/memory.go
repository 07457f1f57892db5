package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// MemoryJobRepository keeps jobs in process memory. It is only safe for a
// single service instance; use JobRepository when running more than one.
type MemoryJobRepository struct {
	mu     sync.RWMutex
	jobs   map[string]domain.Job
	active map[string]string // input key -> job id
}

// NewMemoryJobRepository creates a new MemoryJobRepository instance
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs:   make(map[string]domain.Job),
		active: make(map[string]string),
	}
}

func (r *MemoryJobRepository) CreateOrGet(_ context.Context, job domain.Job) (domain.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.active[job.InputKey]; ok {
		return r.jobs[id], false, nil
	}

	r.jobs[job.ID] = job
	if job.State.Active() {
		r.active[job.InputKey] = job.ID
	}
	return job, true, nil
}

func (r *MemoryJobRepository) GetJobByID(_ context.Context, jobID string) (domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return job, nil
}

func (r *MemoryJobRepository) CompareAndSwap(_ context.Context, expected domain.State, next domain.Job) (domain.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[next.ID]
	if !ok || current.State != expected {
		return domain.Job{}, false, nil
	}

	r.jobs[next.ID] = next
	if !next.State.Active() && r.active[next.InputKey] == next.ID {
		delete(r.active, next.InputKey)
	}
	return next, true, nil
}

func (r *MemoryJobRepository) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Job
	for _, job := range r.jobs {
		if filter.RequesterID != "" && job.RequesterID != filter.RequesterID {
			continue
		}
		if filter.State != "" && job.State != filter.State {
			continue
		}
		if c := filter.Cursor; c != nil && !olderThan(job.CreatedAt, job.ID, c.CreatedAt, c.JobID) {
			continue
		}
		out = append(out, job)
	}

	sort.Slice(out, func(i, j int) bool {
		return olderThan(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID)
	})

	if len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

func (r *MemoryJobRepository) ListTerminalSince(_ context.Context, since time.Time, limit int) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Job
	for _, job := range r.jobs {
		if job.State.Terminal() && !job.UpdatedAt.Before(since) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func (r *MemoryJobRepository) ListStale(_ context.Context, state domain.State, before time.Time, limit int) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Job
	for _, job := range r.jobs {
		if job.State == state && job.UpdatedAt.Before(before) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return truncate(out, limit), nil
}

// MemoryNotificationRepository keeps subscriptions and notifications in process memory.
type MemoryNotificationRepository struct {
	mu            sync.RWMutex
	subscriptions map[string][]string // job id -> consumers in subscription order
	notifications map[string]domain.Notification
	byPair        map[pairKey]string
}

type pairKey struct {
	jobID      string
	consumerID string
}

// NewMemoryNotificationRepository creates a new MemoryNotificationRepository instance
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		subscriptions: make(map[string][]string),
		notifications: make(map[string]domain.Notification),
		byPair:        make(map[pairKey]string),
	}
}

func (r *MemoryNotificationRepository) Subscribe(_ context.Context, jobID string, consumerIDs []string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.subscriptions[jobID]
	for _, consumerID := range consumerIDs {
		if !contains(existing, consumerID) {
			existing = append(existing, consumerID)
		}
	}
	r.subscriptions[jobID] = existing
	return nil
}

func (r *MemoryNotificationRepository) Subscribers(_ context.Context, jobID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.subscriptions[jobID]...), nil
}

func (r *MemoryNotificationRepository) InsertIfAbsent(_ context.Context, n domain.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{jobID: n.JobID, consumerID: n.ConsumerID}
	if _, ok := r.byPair[key]; ok {
		return false, nil
	}
	r.byPair[key] = n.ID
	r.notifications[n.ID] = n
	return true, nil
}

func (r *MemoryNotificationRepository) List(_ context.Context, consumerID string, page domain.Page) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Notification
	for _, n := range r.notifications {
		if n.ConsumerID != consumerID {
			continue
		}
		if c := page.Cursor; c != nil && !olderThan(n.CreatedAt, n.ID, c.CreatedAt, c.ID) {
			continue
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		return olderThan(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID)
	})
	return truncate(out, page.Limit), nil
}

func (r *MemoryNotificationRepository) UnreadCount(_ context.Context, consumerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications {
		if n.ConsumerID == consumerID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *MemoryNotificationRepository) MarkRead(_ context.Context, notificationID, consumerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[notificationID]
	if !ok {
		return domain.ErrNotFound
	}
	if n.ConsumerID != consumerID {
		return domain.ErrForbidden
	}
	n.Read = true
	r.notifications[notificationID] = n
	return nil
}

func (r *MemoryNotificationRepository) MarkAllRead(_ context.Context, consumerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	marked := 0
	for id, n := range r.notifications {
		if n.ConsumerID == consumerID && !n.Read {
			n.Read = true
			r.notifications[id] = n
			marked++
		}
	}
	return marked, nil
}

// olderThan reports whether (at, id) sorts strictly before (refAt, refID) in
// newest-first order, i.e. the row tuple compares less than the reference tuple.
func olderThan(at time.Time, id string, refAt time.Time, refID string) bool {
	if at.Equal(refAt) {
		return id < refID
	}
	return at.Before(refAt)
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
