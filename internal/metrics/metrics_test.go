package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_RecorderAppearsInOutput(t *testing.T) {
	ctx := context.Background()

	handler, shutdown, err := InitMetrics()
	require.NoError(t, err)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	rec, err := NewRecorder()
	require.NoError(t, err)

	rec.Submitted(ctx, "created")
	rec.Transitioned(ctx, "COMPLETED")
	rec.NotificationsCreated(ctx, 2)
	rec.Invalidated(ctx, "ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "mediajobs_jobs_submitted_total")
	assert.Contains(t, body, `outcome="created"`)
	assert.Contains(t, body, "mediajobs_job_transitions_total")
	assert.Contains(t, body, "mediajobs_notifications_created_total")
	assert.Contains(t, body, `result="ok"`)
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.Submitted(context.Background(), "joined")
		rec.Invalidated(context.Background(), "error")
	})
	assert.NotNil(t, Noop())
}
