package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"query-registry-mcp/internal/config"
	"query-registry-mcp/internal/logging"
	"query-registry-mcp/internal/repository"
	"query-registry-mcp/pkg/models"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	// 1. Ensure schema exists
	if _, err := pool.Exec(ctx, repository.RegistrySchema+repository.AuditSchema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	logger.Info("Schema ensured")

	// 2. Check for existing definitions to prevent duplicates
	rows, err := pool.Query(ctx, "SELECT DISTINCT name FROM query_registry")
	if err != nil {
		log.Fatalf("Failed to list existing queries: %v", err)
	}
	existingMap := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			log.Fatalf("Failed to scan query name: %v", err)
		}
		existingMap[name] = true
	}
	rows.Close()

	// 3. Create seed definitions
	for _, def := range seedDefinitions() {
		if existingMap[def.Name] {
			logger.Info("Skipping existing query", "name", def.Name)
			continue
		}

		params, err := json.Marshal(def.Parameters)
		if err != nil {
			log.Fatalf("Failed to marshal parameters for %s: %v", def.Name, err)
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO query_registry
				(name, version, description, sql_text, parameters, statement_kind, is_active, tags)
			 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)`,
			def.Name, def.Version, def.Description, def.SQLText, params,
			string(def.Kind), models.JoinTags(def.Tags))
		if err != nil {
			log.Printf("Failed to seed query %s: %v", def.Name, err)
		} else {
			logger.Info("Seeded query", "name", def.Name, "version", def.Version)
		}
	}
	logger.Info("Seeding complete!")
}

func seedDefinitions() []models.QueryDefinition {
	return []models.QueryDefinition{
		{
			Name:        "active_orders",
			Version:     1,
			Description: "Open orders for a customer, optionally since a given date.",
			SQLText: `SELECT id, customer_id, status, total, created_at
FROM orders
WHERE customer_id = @customer_id
/*[ AND created_at >= @since ]*/
ORDER BY created_at DESC`,
			Parameters: []models.ParameterSpec{
				{Name: "customer_id", Type: models.ParamTypeNumber, Required: true, Description: "Customer identifier"},
				{Name: "since", Type: models.ParamTypeDate, Required: false, Description: "Only orders created on or after this date"},
			},
			Kind: models.StatementKindRead,
			Tags: []string{"orders", "reporting"},
		},
		{
			Name:        "orders_by_status",
			Version:     1,
			Description: "Orders in a given lifecycle status.",
			SQLText: `SELECT id, customer_id, status, total, created_at
FROM orders
WHERE status = @status
ORDER BY created_at DESC`,
			Parameters: []models.ParameterSpec{
				{Name: "status", Type: models.ParamTypeText, Required: false, Default: "open",
					AllowedValues: []any{"open", "shipped", "cancelled"}, Description: "Order lifecycle status"},
			},
			Kind: models.StatementKindRead,
			Tags: []string{"orders"},
		},
		{
			Name:        "customer_by_email",
			Version:     1,
			Description: "Look up a customer record by email address.",
			SQLText: `SELECT id, name, email, created_at
FROM customers
WHERE email = @email`,
			Parameters: []models.ParameterSpec{
				{Name: "email", Type: models.ParamTypeText, Required: true, Sensitive: true, Description: "Customer email address"},
			},
			Kind: models.StatementKindRead,
			Tags: []string{"customers"},
		},
		{
			Name:        "purge_cancelled_orders",
			Version:     1,
			Description: "Delete cancelled orders older than the cutoff date. Requires confirmation.",
			SQLText: `DELETE FROM orders
WHERE status = 'cancelled' AND created_at < @cutoff`,
			Parameters: []models.ParameterSpec{
				{Name: "cutoff", Type: models.ParamTypeDate, Required: true, Description: "Orders created before this date are purged"},
			},
			Kind: models.StatementKindMutating,
			Tags: []string{"orders", "maintenance"},
		},
		{
			Name:        "audit_error_summary",
			Version:     1,
			Description: "Execution errors per query since a given timestamp, most frequent first.",
			SQLText: `SELECT query_name, query_version, count(*) AS errors, max(executed_at) AS last_seen
FROM query_audit_log
WHERE status = 'ERROR' AND executed_at >= @since
GROUP BY query_name, query_version
ORDER BY errors DESC`,
			Parameters: []models.ParameterSpec{
				{Name: "since", Type: models.ParamTypeTimestamp, Required: true, Description: "Start of the review window"},
			},
			Kind: models.StatementKindRead,
			Tags: []string{"audit", "reporting"},
		},
	}
}
