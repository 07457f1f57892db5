package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Config holds logger configuration
type Config struct {
	Level        string      // debug, info, warn, error
	Format       string      // json, console
	Output       string      // stdout, stderr, or file path
	EnableSource bool        // Enable source code location
	TimeFormat   string      // Time format for console output
	Attrs        []slog.Attr // Attached to every record, e.g. service and version

	// writer replaces stdout in tests
	writer io.Writer
}

// Logger wraps slog.Logger and owns the log file, if any
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a new logger instance. A file path output writes JSON to the
// file and keeps console output on stdout.
func New(config *Config) (*Logger, error) {
	level := parseLevel(config.Level)

	stdout := io.Writer(os.Stdout)
	if config.writer != nil {
		stdout = config.writer
	}

	switch config.Output {
	case "stdout", "":
		return &Logger{Logger: slog.New(withAttrs(newHandler(config, stdout, level), config.Attrs))}, nil
	case "stderr":
		return &Logger{Logger: slog.New(withAttrs(newHandler(config, os.Stderr, level), config.Attrs))}, nil
	}

	file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level:     level,
		AddSource: config.EnableSource,
	})

	return &Logger{
		Logger: slog.New(withAttrs(slogmulti.Fanout(newHandler(config, stdout, level), fileHandler), config.Attrs)),
		file:   file,
	}, nil
}

func withAttrs(h slog.Handler, attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.WithAttrs(attrs)
}

func newHandler(config *Config, writer io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.EnableSource,
	}

	switch config.Format {
	case "json":
		return slog.NewJSONHandler(writer, opts)
	case "console", "":
		// Use tint for colorful console output
		timeFormat := config.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}

		return tint.NewHandler(writer, &tint.Options{
			Level:      level,
			AddSource:  config.EnableSource,
			TimeFormat: timeFormat,
			NoColor:    config.writer != nil,
		})
	default:
		return slog.NewJSONHandler(writer, opts)
	}
}

// NewDefault creates a logger with default settings (console format, info level)
func NewDefault() *Logger {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	})

	return &Logger{Logger: slog.New(handler)}
}

// Close closes the log file, if one is open
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// parseLevel converts string level to slog.Level
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
