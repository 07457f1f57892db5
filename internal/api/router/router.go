package router

import (
	"net/http"

	"github.com/cuongbtq/mediajobs/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// Options configures the optional router layers
type Options struct {
	// WorkerToken guards the internal worker routes; empty disables them
	WorkerToken string
	// SubmitLimit throttles submissions per requester; nil disables it
	SubmitLimit *RateLimiter
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
	// ArtifactsDir is served at /artifacts when set
	ArtifactsDir string
	// CORSOrigins restricts browser origins; empty allows any
	CORSOrigins []string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(opts.CORSOrigins))

	r.GET("/health", handler.Health(deps))
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	if opts.ArtifactsDir != "" {
		r.Static("/artifacts", opts.ArtifactsDir)
	}

	jobHandler := handler.NewJobHandler(deps)
	notificationHandler := handler.NewNotificationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit a generation job
			if opts.SubmitLimit != nil {
				jobs.POST("", opts.SubmitLimit.Middleware(), jobHandler.SubmitJob)
			} else {
				jobs.POST("", jobHandler.SubmitJob)
			}

			// GET /api/v1/jobs - List a requester's jobs
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Poll job status
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		notifications := v1.Group("/consumers/:consumer_id/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:notification_id/read", notificationHandler.MarkRead)
		}
	}

	if opts.WorkerToken != "" {
		internal := r.Group("/internal/v1", WorkerTokenMiddleware(opts.WorkerToken))
		{
			// POST /internal/v1/jobs/:job_id/events - Report worker progress
			internal.POST("/jobs/:job_id/events", jobHandler.ReportEvent)
		}
	}

	return r
}
