package logging

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level from a LOG_LEVEL string. Unknown values keep info.
func SetLevel(s string) {
	lvl := LevelInfo
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		lvl = LevelDebug
	case "warn", "warning":
		lvl = LevelWarn
	case "error":
		lvl = LevelError
	}
	minLevel.Store(int32(lvl))
}

func enabled(l Level) bool {
	return int32(l) >= minLevel.Load()
}

// requestIDKey is the key used to store request ID in context
type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying the request ID.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID from a standard context
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for services
type Logger struct {
	requestID string
}

// NewLogger creates a logger with request context
func NewLogger(ctx context.Context) *Logger {
	requestID := "unknown"
	if rid := RequestID(ctx); rid != "" {
		requestID = rid
	}
	return &Logger{requestID: requestID}
}

// LogDebugf logs a formatted debug message with context
func (l *Logger) LogDebugf(operation string, format string, args ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	log.Printf("[debug] request_id=%s operation=%s "+format, append([]interface{}{l.requestID, operation}, args...)...)
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	if !enabled(LevelError) {
		return
	}
	log.Printf("[error] request_id=%s operation=%s error=%v", l.requestID, operation, err)
}

// LogInfo logs an info message with context
func (l *Logger) LogInfo(operation string, message string) {
	if !enabled(LevelInfo) {
		return
	}
	log.Printf("[info] request_id=%s operation=%s message=%s", l.requestID, operation, message)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	log.Printf("[info] request_id=%s operation=%s "+format, append([]interface{}{l.requestID, operation}, args...)...)
}

// LogWarn logs a warning with context
func (l *Logger) LogWarn(operation string, message string) {
	if !enabled(LevelWarn) {
		return
	}
	log.Printf("[warn] request_id=%s operation=%s message=%s", l.requestID, operation, message)
}

// LogWarnf logs a formatted warning with context
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	log.Printf("[warn] request_id=%s operation=%s "+format, append([]interface{}{l.requestID, operation}, args...)...)
}
