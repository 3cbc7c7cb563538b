package logging

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitGlobalLogger installs the process-wide logger writing to out (stdout
// when nil) as JSON or, for any other format, human-readable console lines
func InitGlobalLogger(level LogLevel, format string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}

	var logger *Logger
	if format == "json" {
		logger = NewLogger(level, out)
	} else {
		logger = NewLogger(level, zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stdout})
	}

	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()

	return logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(InfoLevel, os.Stdout)
	}
	return globalLogger
}

// WithContext returns the global logger enriched with the ids found in ctx
func WithContext(ctx context.Context) *zerolog.Logger {
	return GetGlobalLogger().WithContext(ctx)
}
