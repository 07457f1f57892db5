package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cuongbtq/mediajobs/internal/api/dto"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("GENCTL")
	viper.AutomaticEnv()
}

// resetFlags restores flag defaults left over from earlier executions of the shared command tree
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	resetViper()
	resetFlags(rootCmd)
	viper.Set("url", serverURL)
	viper.Set("requester", "0xabc")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSubmitCommand(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		var req dto.SubmitJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nft-42", req.SubjectID)
		assert.Equal(t, "0xabc", req.RequesterID)
		assert.Equal(t, "a cat", req.Prompt)
		assert.Equal(t, []string{"0xdef", "0x123"}, req.Collaborators)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(dto.JobStatusResponse{ID: "job-1", State: "PENDING"})
	})
	mux.HandleFunc("GET /api/v1/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		resp := dto.JobStatusResponse{ID: "job-1", State: "PROCESSING"}
		if polls.Add(1) > 1 {
			resp.State = "COMPLETED"
			resp.Artifact = "https://cdn.example/job-1.png"
		}
		json.NewEncoder(w).Encode(resp)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	t.Run("without wait", func(t *testing.T) {
		out, err := execute(t, server.URL, "submit", "--subject", "nft-42", "--prompt", "a cat",
			"--collaborator", "0xdef", "--collaborator", "0x123")
		require.NoError(t, err)
		assert.Contains(t, out, "Job submitted")
		assert.Contains(t, out, "genctl status job-1")
		assert.Equal(t, int32(0), polls.Load())
	})

	t.Run("with wait", func(t *testing.T) {
		out, err := execute(t, server.URL, "submit", "--subject", "nft-42", "--prompt", "a cat",
			"--collaborator", "0xdef,0x123", "--wait", "--poll-interval", "1ms")
		require.NoError(t, err)
		assert.Contains(t, out, "COMPLETED")
		assert.Contains(t, out, "https://cdn.example/job-1.png")
	})
}

func TestSubmitCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing subject", args: []string{"submit", "--prompt", "a cat"}, wantErr: "--subject is required"},
		{name: "missing prompt", args: []string{"submit", "--subject", "nft-1"}, wantErr: "--prompt is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "http://127.0.0.1:0", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatusCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/jobs/job-1" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "job not found"})
			return
		}
		json.NewEncoder(w).Encode(dto.JobStatusResponse{
			ID:          "job-1",
			State:       "FAILED",
			ErrorReason: "timeout",
			UpdatedAt:   "2026-01-02T03:04:05Z",
		})
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "status", "job-1")
	require.NoError(t, err)
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "timeout")
	assert.NotContains(t, out, "Artifact:")

	_, err = execute(t, server.URL, "status", "job-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job job-2 not found")
}

func TestJobsCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xabc", r.URL.Query().Get("requester_id"))
		if r.URL.Query().Get("state") == "PENDING" {
			json.NewEncoder(w).Encode(dto.ListJobsResponse{})
			return
		}
		json.NewEncoder(w).Encode(dto.ListJobsResponse{
			Jobs: []dto.JobDTO{
				{ID: "job-2", SubjectID: "nft-2", State: "COMPLETED"},
				{ID: "job-1", SubjectID: "nft-1", State: "FAILED"},
			},
			NextCursor: "abc123",
		})
	}))
	defer server.Close()

	out, err := execute(t, server.URL, "jobs", "--page-size", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "job-2")
	assert.Contains(t, out, "nft-1")
	assert.Contains(t, out, "genctl jobs --cursor abc123")

	out, err = execute(t, server.URL, "jobs", "--state", "PENDING")
	require.NoError(t, err)
	assert.Contains(t, out, "No jobs found")
}

func TestNotificationsCommands(t *testing.T) {
	var readAll atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/consumers/0xabc/notifications", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.ListNotificationsResponse{
			Notifications: []dto.NotificationDTO{
				{ID: "n-2", JobID: "job-2"},
				{ID: "n-1", JobID: "job-1", Read: true},
			},
		})
	})
	mux.HandleFunc("GET /api/v1/consumers/0xabc/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.UnreadCountResponse{UnreadCount: 1})
	})
	mux.HandleFunc("POST /api/v1/consumers/0xabc/notifications/n-2/read", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/consumers/0xabc/notifications/n-9/read", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "notification not found"})
	})
	mux.HandleFunc("POST /api/v1/consumers/0xabc/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		readAll.Add(1)
		json.NewEncoder(w).Encode(dto.MarkAllReadResponse{Marked: 1})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	out, err := execute(t, server.URL, "notifications", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "n-2")
	assert.Contains(t, out, "job job-1")

	out, err = execute(t, server.URL, "notifications", "unread")
	require.NoError(t, err)
	assert.Contains(t, out, "1 unread")

	out, err = execute(t, server.URL, "notifications", "read", "n-2")
	require.NoError(t, err)
	assert.Contains(t, out, "Marked n-2 as read")

	_, err = execute(t, server.URL, "notifications", "read", "n-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification not found")

	out, err = execute(t, server.URL, "notif", "read-all")
	require.NoError(t, err)
	assert.Contains(t, out, "Marked 1 notifications as read")
	assert.Equal(t, int32(1), readAll.Load())
}

func TestRequesterRequired(t *testing.T) {
	resetViper()
	resetFlags(rootCmd)
	viper.Set("url", "http://127.0.0.1:0")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"notifications", "unread"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requester not set")
}
