package services

import "query-registry-mcp/internal/audit"

// AuditRecorder receives the finished record of each invocation. Record must
// not block on sink I/O.
type AuditRecorder interface {
	Record(rec *audit.Record)
}

// Logger defines the logging interface compatible with the application
// logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
