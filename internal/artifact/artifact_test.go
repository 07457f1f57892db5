package artifact

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "jobs/1/manifest.json", want: "jobs/1/manifest.json"},
		{key: "/jobs//1/./manifest.json", want: "jobs/1/manifest.json"},
		{key: `jobs\1\out.json`, want: "jobs/1/out.json"},
		{key: "../etc/passwd", wantErr: true},
		{key: "jobs/../../x", wantErr: true},
		{key: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := sanitizeKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimulatedRenderer_Generate(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "https://cdn.example/artifacts/")
	require.NoError(t, err)

	renderer := NewSimulatedRenderer(store, time.Millisecond)
	job := domain.Job{ID: "job-1", SubjectID: "nft-1", Prompt: "a dragon", Style: "anime"}

	url, err := renderer.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/artifacts/jobs/job-1/manifest.json", url)

	data, err := os.ReadFile(filepath.Join(dir, "jobs", "job-1", "manifest.json"))
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "job-1", m.JobID)
	assert.Equal(t, "a dragon", m.Prompt)
}

func TestSimulatedRenderer_RespectsDeadline(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	renderer := NewSimulatedRenderer(store, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = renderer.Generate(ctx, domain.Job{ID: "job-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFileStore_URLWithoutPublicBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(dir, "jobs/x.json")), store.URL("jobs/x.json"))
}
