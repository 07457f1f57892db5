package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/mediajobs/internal/cache"
	"github.com/cuongbtq/mediajobs/internal/domain"
)

// JobService is the submission and polling surface. *orchestrator.Orchestrator satisfies it.
type JobService interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.JobView, error)
	Status(ctx context.Context, jobID string) (domain.JobView, error)
	Advance(ctx context.Context, jobID string, ev domain.Event) (domain.JobView, error)
	List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, bool, error)
}

// NotificationService reads and acknowledges consumer notifications. *notify.Dispatcher satisfies it.
type NotificationService interface {
	List(ctx context.Context, consumerID string, page domain.Page) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, consumerID string) (int, error)
	MarkRead(ctx context.Context, notificationID, consumerID string) error
	MarkAllRead(ctx context.Context, consumerID string) (int, error)
}

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Paging bounds list page sizes
type Paging struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (p Paging) clamp(requested int) int {
	def, max := p.DefaultPageSize, p.MaxPageSize
	if def <= 0 {
		def = 20
	}
	if max <= 0 {
		max = 100
	}
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Jobs          JobService
	Notifications NotificationService
	// StatusCache is optional; without it every poll reads the store
	StatusCache *cache.StatusCache
	// DB is optional; nil means the memory storage driver is in use
	DB          HealthChecker
	Paging      Paging
	ServiceName string
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger      *slog.Logger
	jobs        JobService
	statusCache *cache.StatusCache
	paging      Paging
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:      deps.Logger.With(slog.String("component", "job_handler")),
		jobs:        deps.Jobs,
		statusCache: deps.StatusCache,
		paging:      deps.Paging,
	}
}

// NotificationHandler handles consumer notification requests
type NotificationHandler struct {
	logger        *slog.Logger
	notifications NotificationService
	paging        Paging
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger:        deps.Logger.With(slog.String("component", "notification_handler")),
		notifications: deps.Notifications,
		paging:        deps.Paging,
	}
}
