// Package logging builds the process-wide structured logger. Every
// component receives a *slog.Logger derived from it, so the service name
// travels with each record across the solver, ingestor and batch runner.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

func NewJSONLogger(service, level string) *slog.Logger {
	lvl := parseLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(handler).With(slog.String("service", service))
}

// parseLevel accepts the slog spellings plus "warning". Anything else
// falls back to info so a typo in LOG_LEVEL never silences a process.
func parseLevel(level string) slog.Level {
	s := strings.TrimSpace(level)
	if s == "" {
		return slog.LevelInfo
	}
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
