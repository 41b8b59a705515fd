package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresExecutor runs registered statements against PostgreSQL. Binds are
// strictly by name via @name placeholders; the statement text is never
// interpolated.
type PostgresExecutor struct {
	db *pgxpool.Pool
}

// NewPostgresExecutor creates a new PostgresExecutor.
func NewPostgresExecutor(db *pgxpool.Pool) *PostgresExecutor {
	return &PostgresExecutor{db: db}
}

// Execute runs sqlText with the given named binds, returning at most rowCap
// rows. When the store has more rows than the cap, the result is truncated
// and flagged, never silently over-returned.
func (e *PostgresExecutor) Execute(ctx context.Context, sqlText string, binds map[string]any, rowCap int) (*ResultSet, error) {
	rows, err := e.db.Query(ctx, sqlText, pgx.NamedArgs(binds))
	if err != nil {
		return nil, &ExecutionError{Cause: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	result := &ResultSet{Columns: columns}
	for rows.Next() {
		if len(result.Rows) >= rowCap {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, &ExecutionError{Cause: err}
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if !result.Truncated {
		if err := rows.Err(); err != nil {
			return nil, &ExecutionError{Cause: err}
		}
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
