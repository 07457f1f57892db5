package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCursorRoundTrip(t *testing.T) {
	in := &domain.JobCursor{
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
		JobID:     "0b9f7c1e-3f6a-4c1e-9a57-6c2b8a3c1d2e",
	}

	out, err := DecodeJobCursor(EncodeJobCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.JobID, out.JobID)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{name: "not base64", cursor: "%%%"},
		{name: "missing separator", cursor: base64.StdEncoding.EncodeToString([]byte("12345"))},
		{name: "non numeric time", cursor: base64.StdEncoding.EncodeToString([]byte("abc|id"))},
		{name: "empty id", cursor: base64.StdEncoding.EncodeToString([]byte("12345|"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJobCursor(tt.cursor)
			assert.Error(t, err)
			_, err = DecodeNotificationCursor(tt.cursor)
			assert.Error(t, err)
		})
	}
}

func TestDecodeCursor_Empty(t *testing.T) {
	jc, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, jc)

	nc, err := DecodeNotificationCursor("")
	require.NoError(t, err)
	assert.Nil(t, nc)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("get: %w", domain.ErrNotFound), want: http.StatusNotFound},
		{err: domain.ErrForbidden, want: http.StatusForbidden},
		{err: &domain.TransitionError{From: domain.StateCompleted, Event: domain.EventStarted}, want: http.StatusConflict},
		{err: fmt.Errorf("%w: prompt is required", domain.ErrInvalidSubmission), want: http.StatusBadRequest},
		{err: domain.ErrInvalidEvent, want: http.StatusBadRequest},
		{err: errors.New("connection refused"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestPagingClamp(t *testing.T) {
	p := Paging{DefaultPageSize: 20, MaxPageSize: 100}
	assert.Equal(t, 20, p.clamp(0))
	assert.Equal(t, 20, p.clamp(-5))
	assert.Equal(t, 7, p.clamp(7))
	assert.Equal(t, 100, p.clamp(500))
	assert.Equal(t, 20, Paging{}.clamp(0))
}
