package tracking

import (
	"context"

	"go.uber.org/zap"
)

// Logger writes events to a zap logger
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a tracker that logs every event
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("tracking")}
}

// Track implements Tracker
func (l *Logger) Track(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("endpoint", ev.Endpoint),
		zap.String("method", ev.Method),
		zap.String("url", ev.URL),
		zap.Int("code", ev.Response.Code),
		zap.Duration("elapsed", ev.Elapsed),
	}
	if ev.RequestID != "" {
		fields = append(fields, zap.String("request_id", ev.RequestID))
	}

	if !ev.Response.Success {
		fields = append(fields, zap.String("error", ev.Response.Error))
		l.logger.Warn("request failed", fields...)
		return nil
	}

	l.logger.Info("request completed", fields...)
	return nil
}
