package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"query-registry-mcp/pkg/models"
)

// PostgresRegistry is a PostgreSQL implementation of the RegistryStore
// interface.
type PostgresRegistry struct {
	db *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgresRegistry.
func NewPostgresRegistry(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// GetActiveDefinition returns the single active version of the named query.
func (r *PostgresRegistry) GetActiveDefinition(ctx context.Context, name string) (*models.QueryDefinition, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, version, description, sql_text, parameters, statement_kind, is_active, tags
		 FROM query_registry
		 WHERE name = $1 AND is_active`, name)
	if err != nil {
		return nil, fmt.Errorf("registry lookup for %q: %w", name, err)
	}
	defer rows.Close()

	var defs []*models.QueryDefinition
	for rows.Next() {
		def, err := scanDefinition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("registry lookup for %q: %w", name, err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry lookup for %q: %w", name, err)
	}

	switch len(defs) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	case 1:
		return defs[0], nil
	default:
		return nil, &IntegrityError{Name: name, ActiveVersions: len(defs)}
	}
}

// ListActiveDefinitions returns summaries of all active queries. A non-empty
// tags slice keeps only queries matching at least one tag.
func (r *PostgresRegistry) ListActiveDefinitions(ctx context.Context, tags []string) ([]models.QuerySummary, error) {
	sql := `SELECT name, description, parameters, tags FROM query_registry WHERE is_active`
	var args []any
	if len(tags) > 0 {
		conds := make([]string, len(tags))
		for i, tag := range tags {
			// anchor on the comma-joined column so "orders" never matches
			// a query tagged "preorders"
			conds[i] = fmt.Sprintf("',' || tags || ',' LIKE '%%,' || $%d || ',%%'", i+1)
			args = append(args, strings.TrimSpace(tag))
		}
		sql += " AND (" + strings.Join(conds, " OR ") + ")"
	}
	sql += " ORDER BY name"

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("registry list: %w", err)
	}
	defer rows.Close()

	var summaries []models.QuerySummary
	for rows.Next() {
		var (
			s         models.QuerySummary
			rawParams []byte
			rawTags   string
		)
		if err := rows.Scan(&s.Name, &s.Description, &rawParams, &rawTags); err != nil {
			return nil, fmt.Errorf("registry list: %w", err)
		}
		if err := unmarshalSpecs(rawParams, &s.Parameters); err != nil {
			return nil, fmt.Errorf("registry list: query %q: %w", s.Name, err)
		}
		s.Tags = models.SplitTags(rawTags)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry list: %w", err)
	}
	return summaries, nil
}

func scanDefinition(scan func(dest ...any) error) (*models.QueryDefinition, error) {
	var (
		def       models.QueryDefinition
		rawParams []byte
		rawTags   string
	)
	if err := scan(&def.ID, &def.Name, &def.Version, &def.Description, &def.SQLText,
		&rawParams, &def.Kind, &def.IsActive, &rawTags); err != nil {
		return nil, err
	}
	if err := unmarshalSpecs(rawParams, &def.Parameters); err != nil {
		return nil, err
	}
	def.Tags = models.SplitTags(rawTags)
	return &def, nil
}

func unmarshalSpecs(raw []byte, specs *[]models.ParameterSpec) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, specs); err != nil {
		return fmt.Errorf("malformed parameter schema: %w", err)
	}
	return nil
}
