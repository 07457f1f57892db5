package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_JSONLevels(t *testing.T) {
	tests := []struct {
		level     string
		wantLevel []string
	}{
		{level: "debug", wantLevel: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{level: "info", wantLevel: []string{"INFO", "WARN", "ERROR"}},
		{level: "warn", wantLevel: []string{"WARN", "ERROR"}},
		{level: "error", wantLevel: []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			output := &bytes.Buffer{}
			logger, err := New(&Config{Level: tt.level, Format: "json", writer: output})
			require.NoError(t, err)

			logger.Debug("debug message")
			logger.Info("info message", slog.String("job_id", "j-1"))
			logger.Warn("warn message")
			logger.Error("error message")

			var got []string
			for _, entry := range decodeLines(t, output.String()) {
				got = append(got, entry["level"].(string))
				if entry["msg"] == "info message" {
					assert.Equal(t, "j-1", entry["job_id"])
				}
			}
			assert.Equal(t, tt.wantLevel, got)
		})
	}
}

func TestNew_Console(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "console", writer: output})
	require.NoError(t, err)

	logger.Info("console test", slog.String("state", "PENDING"))

	// tint abbreviates levels
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "console test")
	assert.Contains(t, output.String(), "state=PENDING")
}

func TestNew_WithSource(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "json", EnableSource: true, writer: output})
	require.NoError(t, err)

	logger.Info("message with source")

	entries := decodeLines(t, output.String())
	require.Len(t, entries, 1)
	source, ok := entries[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_StaticAttrs(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{
		Level:  "info",
		Format: "json",
		Attrs:  []slog.Attr{slog.String("service", "mediajobs-api"), slog.String("version", "1.2.3")},
		writer: output,
	})
	require.NoError(t, err)

	logger.Info("tagged")

	entries := decodeLines(t, output.String())
	require.Len(t, entries, 1)
	assert.Equal(t, "mediajobs-api", entries[0]["service"])
	assert.Equal(t, "1.2.3", entries[0]["version"])
}

func TestNew_FileOutputFansOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediajobs.log")
	console := &bytes.Buffer{}

	logger, err := New(&Config{Level: "info", Format: "console", Output: path, writer: console})
	require.NoError(t, err)

	logger.Info("job submitted", slog.String("job_id", "j-42"))
	logger.Debug("dropped")
	require.NoError(t, logger.Close())

	assert.Contains(t, console.String(), "job submitted")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := decodeLines(t, string(raw))
	require.Len(t, entries, 1)
	assert.Equal(t, "job submitted", entries[0]["msg"])
	assert.Equal(t, "j-42", entries[0]["job_id"])
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	assert.NoError(t, NewDefault().Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "info", expected: slog.LevelInfo},
		{level: "warn", expected: slog.LevelWarn},
		{level: "warning", expected: slog.LevelWarn},
		{level: "error", expected: slog.LevelError},
		{level: "DEBUG", expected: slog.LevelInfo}, // case-sensitive
		{level: "invalid", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}
