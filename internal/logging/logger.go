package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	userIDKey
)

// Logger holds the zerolog logger instance
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new logger instance with the specified log level
func NewLogger(logLevel LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{
		logger: logger,
	}
}

// Zerolog exposes the underlying logger for injection into services
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.logger
}

// WithContext adds request, user and trace fields found in ctx
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logCtx := l.logger.With()

	if reqID := GetRequestID(ctx); reqID != "" {
		logCtx = logCtx.Str("req_id", reqID)
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		logCtx = logCtx.Str("trace_id", spanCtx.TraceID().String())
		logCtx = logCtx.Str("span_id", spanCtx.SpanID().String())
	}

	if userID := GetUserIDFromContext(ctx); userID != 0 {
		logCtx = logCtx.Int64("user_id", userID)
	}

	contextualLogger := logCtx.Logger()
	return &contextualLogger
}

// WithModule creates a child logger tagged with a module name
func (l *Logger) WithModule(module string) *zerolog.Logger {
	logger := l.logger.With().Str("module", module).Logger()
	return &logger
}

// LogHTTPRequest logs one line per processed request
func (l *Logger) LogHTTPRequest(c *fiber.Ctx, duration time.Duration) {
	var userID int64
	if id, ok := c.Locals("user_id").(int64); ok {
		userID = id
	}

	event := l.logger.Info()
	status := c.Response().StatusCode()
	if status >= fiber.StatusInternalServerError {
		event = l.logger.Error()
	} else if status >= fiber.StatusBadRequest {
		event = l.logger.Warn()
	}

	event.
		Str("req_id", GetRequestID(c.UserContext())).
		Int64("user_id", userID).
		Str("ip", c.IP()).
		Str("method", c.Method()).
		Str("route", c.Route().Path).
		Int("status", status).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("HTTP request processed")
}

// FiberLoggerMiddleware creates a Fiber-compatible logging middleware. It
// expects the requestid middleware to run first.
func (l *Logger) FiberLoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if reqID, ok := c.Locals("requestid").(string); ok && reqID != "" {
			c.SetUserContext(ContextWithRequestID(c.UserContext(), reqID))
		}

		err := c.Next()
		if err != nil {
			// let the app error handler write the response before logging the status
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		l.LogHTTPRequest(c, time.Since(start))
		return err
	}
}

// ContextWithRequestID stores the request id for later log enrichment
func ContextWithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey, reqID)
}

// ContextWithUserID stores the acting user id for later log enrichment
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	reqID, _ := ctx.Value(requestIDKey).(string)
	return reqID
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	userID, _ := ctx.Value(userIDKey).(int64)
	return userID
}

// SetLogLevel dynamically changes the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) error {
	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %s", logLevel)
	}

	l.logger = l.logger.Level(level)
	return nil
}
