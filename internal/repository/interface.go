package repository

import (
	"context"
	"errors"
	"fmt"

	"query-registry-mcp/pkg/models"
)

// ErrNotFound reports an unknown or inactive query name.
var ErrNotFound = errors.New("query not found")

// IntegrityError reports a broken single-active-version invariant in the
// registry. It is an internal fault, never a caller-input error, and the
// lookup never silently picks a row when it occurs.
type IntegrityError struct {
	Name           string
	ActiveVersions int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("registry integrity fault: query %q has %d active versions", e.Name, e.ActiveVersions)
}

// ExecutionError wraps a store-level fault (timeout, constraint violation,
// connectivity loss) behind a store-agnostic message. The cause is reachable
// for logging via Unwrap but callers never depend on its structure.
type ExecutionError struct {
	Cause error
}

func (e *ExecutionError) Error() string {
	return "statement execution failed"
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// ResultSet is the outcome of one statement execution. Rows never exceeds
// the requested cap; Truncated reports that the store had more.
type ResultSet struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// RegistryStore resolves query names against the versioned registry. The
// registry is written out-of-band; this service only reads it.
type RegistryStore interface {
	// GetActiveDefinition returns the single active version of the named
	// query, ErrNotFound if none exists, or an IntegrityError if the
	// single-active-version invariant is broken.
	GetActiveDefinition(ctx context.Context, name string) (*models.QueryDefinition, error)
	// ListActiveDefinitions returns summaries of all active queries,
	// optionally filtered to those matching at least one of the given tags.
	ListActiveDefinitions(ctx context.Context, tags []string) ([]models.QuerySummary, error)
}

// QueryExecutor runs a validated statement with named binds. It owns no
// validation logic; only declared, typed binds ever reach it.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string, binds map[string]any, rowCap int) (*ResultSet, error)
}
