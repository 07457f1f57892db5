package dto

type SubmitJobRequest struct {
	SubjectID     string   `json:"subject_id" binding:"required"`
	RequesterID   string   `json:"requester_id" binding:"required"`
	Prompt        string   `json:"prompt" binding:"required"`
	Style         string   `json:"style"`
	Collaborators []string `json:"collaborators"`
}

type ListJobsRequest struct {
	RequesterID string `form:"requester_id" binding:"required"`
	State       string `form:"state"`
	PageSize    int    `form:"page_size"`
	Cursor      string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// JobStatusResponse is the polling view of a job
type JobStatusResponse struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Artifact    string `json:"artifact,omitempty"`
	ErrorReason string `json:"error_reason,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

type JobDTO struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subject_id"`
	RequesterID string `json:"requester_id"`
	Prompt      string `json:"prompt"`
	Style       string `json:"style,omitempty"`
	State       string `json:"state"`
	Artifact    string `json:"artifact,omitempty"`
	ErrorReason string `json:"error_reason,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// WorkerEventRequest is a progress report from an out-of-process worker
type WorkerEventRequest struct {
	Type     string `json:"type" binding:"required"`
	Artifact string `json:"artifact"`
	Reason   string `json:"reason"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
