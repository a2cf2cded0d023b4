package log

import (
	"context"
	"log/slog"

	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// SlogLogger adapts a *slog.Logger to Logger. Combined with SetupLogger it
// gives JSON records with cockroachdb stack traces extracted by
// ErrFmtHandler.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

// Debug implements Logger.Debug.
func (s *SlogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }

// Info implements Logger.Info.
func (s *SlogLogger) Info(msg string, fields ...any) { s.l.Info(msg, fields...) }

// Warn implements Logger.Warn.
func (s *SlogLogger) Warn(msg string, fields ...any) { s.l.Warn(msg, fields...) }

// Error implements Logger.Error.
func (s *SlogLogger) Error(msg string, fields ...any) { s.l.Error(msg, fields...) }

// With implements Logger.With.
func (s *SlogLogger) With(fields ...any) Logger { return &SlogLogger{l: s.l.With(fields...)} }

// Enabled implements Logger.Enabled.
func (s *SlogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}

// InstallWarnings routes errors.Warn through this logger at warn level,
// replacing any hook installed earlier in the process.
func (s *SlogLogger) InstallWarnings() {
	logger := s.With(ComponentKey, "warnings")
	errors.SetZerologWarnFunc(func(w error) {
		logger.Warn(w.Error(), "warning", w)
	})
}
