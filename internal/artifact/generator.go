package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// Manifest describes a rendered output
type Manifest struct {
	JobID       string    `json:"job_id"`
	SubjectID   string    `json:"subject_id"`
	Prompt      string    `json:"prompt"`
	Style       string    `json:"style,omitempty"`
	RenderedAt  time.Time `json:"rendered_at"`
	DurationMS  int64     `json:"duration_ms"`
	ContentType string    `json:"content_type"`
}

// SimulatedRenderer stands in for an external generation backend: it waits for
// the configured render time and writes a manifest describing the output.
type SimulatedRenderer struct {
	store       *FileStore
	renderDelay time.Duration
	now         func() time.Time
}

// NewSimulatedRenderer creates a new SimulatedRenderer instance
func NewSimulatedRenderer(store *FileStore, renderDelay time.Duration) *SimulatedRenderer {
	return &SimulatedRenderer{
		store:       store,
		renderDelay: renderDelay,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders job and returns the artifact reference. It returns ctx.Err()
// if the context ends before rendering finishes.
func (r *SimulatedRenderer) Generate(ctx context.Context, job domain.Job) (string, error) {
	start := r.now()

	select {
	case <-time.After(r.renderDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	manifest := Manifest{
		JobID:       job.ID,
		SubjectID:   job.SubjectID,
		Prompt:      job.Prompt,
		Style:       job.Style,
		RenderedAt:  r.now(),
		DurationMS:  r.now().Sub(start).Milliseconds(),
		ContentType: "video/mp4",
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}

	key, err := r.store.Write(ctx, fmt.Sprintf("jobs/%s/manifest.json", job.ID), data)
	if err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}

	return r.store.URL(key), nil
}
