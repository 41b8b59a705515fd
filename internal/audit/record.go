// Package audit builds one immutable record per query invocation and
// dispatches it to two independent sinks: a rotating log file and the audit
// table in the store. Neither sink's failure ever reaches the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the final outcome of an invocation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Record captures a single invocation, success or failure. It is created
// once the execution outcome is known and never mutated afterward.
// Parameters holds the masked view, never the values bound for execution.
type Record struct {
	ID           string         `json:"id"`
	QueryName    string         `json:"query_name"`
	QueryVersion int            `json:"query_version"`
	ExecutedAt   time.Time      `json:"executed_at"`
	Parameters   map[string]any `json:"parameters"`
	Status       Status         `json:"status"`
	Error        string         `json:"error,omitempty"`
	RowCount     int            `json:"row_count"`
	DurationMs   int64          `json:"duration_ms"`
	CallerID     string         `json:"caller_id,omitempty"`
}

func (r *Record) fillDefaults() {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ExecutedAt.IsZero() {
		r.ExecutedAt = time.Now().UTC()
	}
}

// Sink receives finished audit records. Implementations own their I/O and
// their failure handling surface is the returned error only.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
}
