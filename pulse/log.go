package pulse

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by pulse. By default pulse logs
// nothing. Pass nil to restore the silent default.
//
// Levels used:
//   - [slog.LevelDebug]: submissions, texture uploads, sampler cache misses
//   - [slog.LevelInfo]: adapter selection
//   - [slog.LevelWarn]: abandoned adapter or device requests
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}

	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogLabel(label string) slog.Attr {
	return slog.String("label", label)
}
