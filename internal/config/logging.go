package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger wires the process logger: text on stderr for the operator and
// JSON appended to logFile for later inspection. The returned cleanup closes
// the file; it is a no-op when the file could not be opened and logging runs
// on stderr alone.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: level}
	stderr := slog.NewTextHandler(os.Stderr, opts)

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(stderr)
		logger.Warn("log file unavailable, logging to stderr only", "file", logFile, "error", err)
		return logger, func() error { return nil }
	}

	logger := slog.New(slogmulti.Fanout(
		stderr,
		slog.NewJSONHandler(file, opts),
	))
	return logger, file.Close
}

// NewTestLogger runs the same dual-handler pipeline over arbitrary writers
// so tests can capture both streams.
func NewTestLogger(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
}
