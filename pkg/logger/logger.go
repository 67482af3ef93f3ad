package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
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

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Business logic logging methods

// LogBookingCreated logs when a booking is confirmed
func (l *Logger) LogBookingCreated(ctx context.Context, reference, movie, theatre, loginName string, tickets int) {
	l.Logger.InfoContext(ctx,
		"Booking Created",
		slog.String("reference", reference),
		slog.String("movie", movie),
		slog.String("theatre", theatre),
		slog.String("login_name", loginName),
		slog.Int("tickets", tickets),
	)
}

// LogBookingCancelled logs when a booking is cancelled
func (l *Logger) LogBookingCancelled(ctx context.Context, reference, movie, theatre, actor string) {
	l.Logger.InfoContext(ctx,
		"Booking Cancelled",
		slog.String("reference", reference),
		slog.String("movie", movie),
		slog.String("theatre", theatre),
		slog.String("actor", actor),
	)
}

// LogBookingCompensated logs the compensating delete of a booking whose inventory
// update failed. A non-nil compensateErr means the ledger may now disagree with the
// counter and the pair needs a recalculation.
func (l *Logger) LogBookingCompensated(ctx context.Context, reference, movie, theatre string, cause, compensateErr error) {
	if compensateErr != nil {
		l.Logger.ErrorContext(ctx,
			"Booking Compensation Failed",
			slog.String("reference", reference),
			slog.String("movie", movie),
			slog.String("theatre", theatre),
			slog.String("cause", cause.Error()),
			slog.String("error", compensateErr.Error()),
		)
		return
	}
	l.Logger.WarnContext(ctx,
		"Booking Compensated",
		slog.String("reference", reference),
		slog.String("movie", movie),
		slog.String("theatre", theatre),
		slog.String("cause", cause.Error()),
	)
}

// LogInventoryRecalculated logs a recalculation that changed the stored counter
func (l *Logger) LogInventoryRecalculated(ctx context.Context, movie, theatre string, before, after int) {
	l.Logger.InfoContext(ctx,
		"Inventory Recalculated",
		slog.String("movie", movie),
		slog.String("theatre", theatre),
		slog.Int("available_before", before),
		slog.Int("available_after", after),
	)
}

// LogRetentionSweep logs the outcome of a cancelled-booking purge
func (l *Logger) LogRetentionSweep(ctx context.Context, cutoff time.Time, purged int64) {
	l.Logger.InfoContext(ctx,
		"Retention Sweep",
		slog.Time("cutoff", cutoff),
		slog.Int64("purged", purged),
	)
}

// Security logging methods

// LogAuthSuccess logs successful authentication
func (l *Logger) LogAuthSuccess(ctx context.Context, userID, method string) {
	l.Logger.InfoContext(ctx,
		"Authentication Success",
		slog.String("user_id", userID),
		slog.String("method", method),
	)
}

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}
