package device

import (
	"log/slog"
	"sync/atomic"
)

var (
	silent    = slog.New(slog.DiscardHandler)
	loggerPtr atomic.Pointer[slog.Logger]
)

func init() {
	loggerPtr.Store(silent)
}

// Logger returns the package logger. Backends log through it.
func Logger() *slog.Logger { return loggerPtr.Load() }

// SetLogger replaces the package logger. A nil logger silences output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	loggerPtr.Store(l)
}
