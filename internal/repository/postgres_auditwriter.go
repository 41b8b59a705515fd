package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"query-registry-mcp/internal/audit"
)

// PostgresAuditWriter is the store channel of the audit recorder. Each write
// borrows its own connection from the pool, independent of any execution's
// transaction.
type PostgresAuditWriter struct {
	db *pgxpool.Pool
}

// NewPostgresAuditWriter creates a new PostgresAuditWriter.
func NewPostgresAuditWriter(db *pgxpool.Pool) *PostgresAuditWriter {
	return &PostgresAuditWriter{db: db}
}

// Write inserts one row into the audit table.
func (w *PostgresAuditWriter) Write(ctx context.Context, rec *audit.Record) error {
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return fmt.Errorf("marshal audit parameters: %w", err)
	}
	_, err = w.db.Exec(ctx,
		`INSERT INTO query_audit_log
			(id, query_name, query_version, executed_at, parameters, status,
			 error_message, row_count, duration_ms, caller_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.QueryName, rec.QueryVersion, rec.ExecutedAt, params,
		string(rec.Status), nullable(rec.Error), rec.RowCount, rec.DurationMs,
		nullable(rec.CallerID))
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
