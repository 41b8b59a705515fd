package repository

// RegistrySchema creates the registry table. Definitions are append-only:
// a change inserts a new version and deactivates the prior one.
const RegistrySchema = `
CREATE TABLE IF NOT EXISTS query_registry (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL,
	version INT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	sql_text TEXT NOT NULL,
	parameters JSONB NOT NULL DEFAULT '[]',
	statement_kind TEXT NOT NULL DEFAULT 'READ',
	is_active BOOLEAN NOT NULL DEFAULT FALSE,
	tags TEXT NOT NULL DEFAULT '',
	UNIQUE (name, version)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_query_registry_one_active
	ON query_registry(name) WHERE is_active;
`

// AuditSchema creates the store channel's audit table.
const AuditSchema = `
CREATE TABLE IF NOT EXISTS query_audit_log (
	id UUID PRIMARY KEY,
	query_name TEXT NOT NULL,
	query_version INT NOT NULL,
	executed_at TIMESTAMPTZ NOT NULL,
	parameters JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	error_message TEXT,
	row_count INT NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	caller_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_query_audit_log_time ON query_audit_log(executed_at);
CREATE INDEX IF NOT EXISTS idx_query_audit_log_name ON query_audit_log(query_name);
`
