package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/gin-gonic/gin"
)

// SubmitJob handles POST /api/v1/jobs
// Creates a generation job or joins the active one with the same inputs
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		badRequest(c, "Invalid request body")
		return
	}

	view, err := h.jobs.Submit(c.Request.Context(), domain.Submission{
		SubjectID:     req.SubjectID,
		RequesterID:   req.RequesterID,
		Prompt:        req.Prompt,
		Style:         req.Style,
		Collaborators: req.Collaborators,
	})
	if err != nil {
		abortWithError(c, h.logger, err, "Failed to submit job")
		return
	}

	h.logger.Info("Job submitted",
		slog.String("job_id", view.ID),
		slog.String("requester_id", req.RequesterID),
		slog.String("state", string(view.State)),
	)

	c.JSON(http.StatusAccepted, toStatusResponse(view))
}

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the job's current status. Finished jobs are served from the local cache.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if h.statusCache != nil {
		if view, ok := h.statusCache.Get(jobID); ok {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, toStatusResponse(view))
			return
		}
	}

	view, err := h.jobs.Status(c.Request.Context(), jobID)
	if err != nil {
		abortWithError(c, h.logger, err, "Failed to get job")
		return
	}

	if h.statusCache != nil {
		h.statusCache.Put(view)
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, toStatusResponse(view))
}

// ListJobs handles GET /api/v1/jobs
// Lists a requester's jobs newest first with cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		badRequest(c, "Invalid query parameters")
		return
	}

	var state domain.State
	if req.State != "" {
		s, ok := domain.ParseState(req.State)
		if !ok {
			badRequest(c, "Invalid state")
			return
		}
		state = s
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		badRequest(c, "Invalid cursor")
		return
	}

	filter := domain.JobFilter{
		RequesterID: req.RequesterID,
		State:       state,
		PageSize:    h.paging.clamp(req.PageSize),
		Cursor:      cursor,
	}

	jobs, hasMore, err := h.jobs.List(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, h.logger, err, "Failed to list jobs")
		return
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.JobDTO{
			ID:          job.ID,
			SubjectID:   job.SubjectID,
			RequesterID: job.RequesterID,
			Prompt:      job.Prompt,
			Style:       job.Style,
			State:       string(job.State),
			Artifact:    job.Artifact,
			ErrorReason: job.ErrorReason,
			CreatedAt:   job.CreatedAt.Format(time.RFC3339),
			UpdatedAt:   job.UpdatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore && len(jobs) > 0 {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&domain.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// ReportEvent handles POST /internal/v1/jobs/:job_id/events
// Applies a worker progress event to the job
func (h *JobHandler) ReportEvent(c *gin.Context) {
	jobID := c.Param("job_id")

	var req dto.WorkerEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid event body", slog.String("error", err.Error()))
		badRequest(c, "Invalid request body")
		return
	}

	ev, err := domain.ParseEvent(req.Type, req.Artifact, req.Reason)
	if err != nil {
		abortWithError(c, h.logger, err, "Invalid event")
		return
	}

	view, err := h.jobs.Advance(c.Request.Context(), jobID, ev)
	if err != nil {
		abortWithError(c, h.logger, err, "Failed to apply event")
		return
	}

	h.logger.Info("Worker event applied",
		slog.String("job_id", jobID),
		slog.String("event", ev.String()),
		slog.String("state", string(view.State)),
	)

	c.JSON(http.StatusOK, toStatusResponse(view))
}

func toStatusResponse(view domain.JobView) dto.JobStatusResponse {
	return dto.JobStatusResponse{
		ID:          view.ID,
		State:       string(view.State),
		Artifact:    view.Artifact,
		ErrorReason: view.ErrorReason,
		UpdatedAt:   view.UpdatedAt.Format(time.RFC3339Nano),
	}
}
