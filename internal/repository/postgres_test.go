package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"query-registry-mcp/internal/audit"
	"query-registry-mcp/pkg/models"
)

func TestPostgresRepository(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, RegistrySchema+AuditSchema+`
		CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			status TEXT NOT NULL
		);
		INSERT INTO orders (id, customer_id, status) VALUES
			(1, 42, 'open'), (2, 42, 'open'), (3, 42, 'shipped'),
			(4, 42, 'open'), (5, 7, 'cancelled');
	`)
	if err != nil {
		t.Fatal(err)
	}

	seedDefinition(t, pool, "active_orders", 2, false, "orders,reporting")
	seedDefinition(t, pool, "active_orders", 3, true, "orders,reporting")
	seedDefinition(t, pool, "other_query", 1, true, "customers")
	seedDefinition(t, pool, "preorder_report", 1, true, "preorders,reporting")

	registry := NewPostgresRegistry(pool)

	t.Run("GetActiveDefinition returns the active version", func(t *testing.T) {
		def, err := registry.GetActiveDefinition(ctx, "active_orders")
		require.NoError(t, err)
		assert.Equal(t, "active_orders", def.Name)
		assert.Equal(t, 3, def.Version)
		assert.True(t, def.IsActive)
		assert.Equal(t, models.StatementKindRead, def.Kind)
		assert.Equal(t, []string{"orders", "reporting"}, def.Tags)
		require.Len(t, def.Parameters, 1)
		assert.Equal(t, "customer_id", def.Parameters[0].Name)
		assert.Equal(t, models.ParamTypeNumber, def.Parameters[0].Type)
	})

	t.Run("GetActiveDefinition unknown name", func(t *testing.T) {
		_, err := registry.GetActiveDefinition(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetActiveDefinition integrity fault on multiple active", func(t *testing.T) {
		// the partial unique index normally prevents this; drop it to
		// simulate a registry whose invariant broke upstream
		_, err := pool.Exec(ctx, "DROP INDEX IF EXISTS idx_query_registry_one_active")
		require.NoError(t, err)
		seedDefinition(t, pool, "dup_query", 1, true, "")
		seedDefinition(t, pool, "dup_query", 2, true, "")

		_, err = registry.GetActiveDefinition(ctx, "dup_query")
		var integrity *IntegrityError
		require.ErrorAs(t, err, &integrity)
		assert.Equal(t, "dup_query", integrity.Name)
		assert.Equal(t, 2, integrity.ActiveVersions)
	})

	t.Run("ListActiveDefinitions", func(t *testing.T) {
		summaries, err := registry.ListActiveDefinitions(ctx, nil)
		require.NoError(t, err)
		names := make([]string, len(summaries))
		for i, s := range summaries {
			names[i] = s.Name
		}
		assert.Contains(t, names, "active_orders")
		assert.Contains(t, names, "other_query")
	})

	t.Run("ListActiveDefinitions tag filter", func(t *testing.T) {
		summaries, err := registry.ListActiveDefinitions(ctx, []string{"customers"})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "other_query", summaries[0].Name)
	})

	t.Run("ListActiveDefinitions tag filter matches whole tags only", func(t *testing.T) {
		summaries, err := registry.ListActiveDefinitions(ctx, []string{"orders"})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "active_orders", summaries[0].Name)

		summaries, err = registry.ListActiveDefinitions(ctx, []string{"preorders"})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "preorder_report", summaries[0].Name)
	})

	executor := NewPostgresExecutor(pool)

	t.Run("Execute binds by name", func(t *testing.T) {
		result, err := executor.Execute(ctx,
			"SELECT id, status FROM orders WHERE customer_id = @customer_id ORDER BY id",
			map[string]any{"customer_id": 42}, 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "status"}, result.Columns)
		assert.Equal(t, 4, result.RowCount)
		assert.False(t, result.Truncated)
		assert.Equal(t, int64(1), result.Rows[0]["id"])
		assert.Equal(t, "open", result.Rows[0]["status"])
	})

	t.Run("Execute truncates at the row cap", func(t *testing.T) {
		result, err := executor.Execute(ctx,
			"SELECT id FROM orders WHERE customer_id = @customer_id ORDER BY id",
			map[string]any{"customer_id": 42}, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, result.RowCount)
		assert.Len(t, result.Rows, 3)
		assert.True(t, result.Truncated)
	})

	t.Run("Execute wraps store faults", func(t *testing.T) {
		_, err := executor.Execute(ctx, "SELECT * FROM no_such_table", map[string]any{}, 10)
		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, "statement execution failed", execErr.Error())
		assert.Error(t, errors.Unwrap(execErr))
	})

	writer := NewPostgresAuditWriter(pool)

	t.Run("audit Write inserts a row", func(t *testing.T) {
		rec := &audit.Record{
			ID:           uuid.New().String(),
			QueryName:    "active_orders",
			QueryVersion: 3,
			ExecutedAt:   time.Now().UTC(),
			Parameters:   map[string]any{"customer_id": 42},
			Status:       audit.StatusSuccess,
			RowCount:     4,
			DurationMs:   12,
			CallerID:     "alice@example.com",
		}
		require.NoError(t, writer.Write(ctx, rec))

		var (
			name     string
			status   string
			rowCount int
			caller   *string
			errMsg   *string
		)
		err := pool.QueryRow(ctx,
			"SELECT query_name, status, row_count, caller_id, error_message FROM query_audit_log WHERE id = $1",
			rec.ID).Scan(&name, &status, &rowCount, &caller, &errMsg)
		require.NoError(t, err)
		assert.Equal(t, "active_orders", name)
		assert.Equal(t, "SUCCESS", status)
		assert.Equal(t, 4, rowCount)
		require.NotNil(t, caller)
		assert.Equal(t, "alice@example.com", *caller)
		assert.Nil(t, errMsg)
	})
}

func seedDefinition(t *testing.T, pool *pgxpool.Pool, name string, version int, active bool, tags string) {
	t.Helper()
	params, err := json.Marshal([]models.ParameterSpec{
		{Name: "customer_id", Type: models.ParamTypeNumber, Required: true},
	})
	require.NoError(t, err)
	_, err = pool.Exec(context.Background(),
		`INSERT INTO query_registry (name, version, description, sql_text, parameters, statement_kind, is_active, tags)
		 VALUES ($1, $2, '', 'SELECT id FROM orders WHERE customer_id = @customer_id', $3, 'READ', $4, $5)`,
		name, version, params, active, tags)
	require.NoError(t, err)
}
