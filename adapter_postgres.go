package main

import (
	"fmt"
	"net/url"
	"strings"
)

// PostgresAdapter implements Dialect for PostgreSQL databases. Native
// selects a pgx connection pool instead of database/sql with lib/pq.
type PostgresAdapter struct {
	Native bool
}

func (a *PostgresAdapter) DriverName() string {
	if a.Native {
		return "pgx"
	}
	return "postgres"
}

func (a *PostgresAdapter) ServerName() string { return "postgres-mcp-sql-gateway" }
func (a *PostgresAdapter) URIScheme() string  { return "postgres" }

func (a *PostgresAdapter) BuildDSN(getenv func(string) string) (string, error) {
	if missing := missingEnv(getenv, "MCP_PG_HOST", "MCP_PG_PORT", "MCP_PG_DB", "MCP_PG_USER", "MCP_PG_PASSWORD"); len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variables: %v", missing)
	}

	sslmode := getenv("MCP_PG_SSLMODE")
	if sslmode == "" {
		sslmode = "prefer"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenv("MCP_PG_USER"), getenv("MCP_PG_PASSWORD")),
		Host:     getenv("MCP_PG_HOST") + ":" + getenv("MCP_PG_PORT"),
		Path:     "/" + getenv("MCP_PG_DB"),
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String(), nil
}

func (a *PostgresAdapter) DatabaseName(dsn string) string {
	if !isURLDSN(dsn) {
		for _, field := range strings.Fields(dsn) {
			if name, ok := strings.CutPrefix(field, "dbname="); ok {
				return name
			}
		}
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// EnforceReadOnly adds default_transaction_read_only as a runtime
// parameter. Both lib/pq and pgx send unknown DSN keys to the server.
func (a *PostgresAdapter) EnforceReadOnly(dsn string) (string, error) {
	if !isURLDSN(dsn) {
		return strings.TrimSpace(dsn) + " default_transaction_read_only=on", nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	q := u.Query()
	q.Set("default_transaction_read_only", "on")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *PostgresAdapter) ListTablesQuery() string {
	return `SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`
}

func (a *PostgresAdapter) DescribeTableQuery(table string) string {
	return fmt.Sprintf(`SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			CASE WHEN pk.column_name IS NOT NULL THEN 'PRI' ELSE '' END,
			c.column_default
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT ku.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage ku
				ON tc.constraint_name = ku.constraint_name
				AND tc.table_schema = ku.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = current_schema()
				AND tc.table_name = '%[1]s'
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = current_schema() AND c.table_name = '%[1]s'
		ORDER BY c.ordinal_position`, table)
}

func (a *PostgresAdapter) SampleQuery(table string, limit int) string { return sampleQuery(table, limit) }

func (a *PostgresAdapter) Lex() LexOptions {
	return LexOptions{DollarQuotes: true, EscapeStrings: true}
}

func (a *PostgresAdapter) ForbiddenPatterns() []forbiddenPattern { return postgresForbidden }

var postgresForbidden = forbidFunctions(
	"pg_read_file",
	"pg_read_binary_file",
	"pg_ls_dir",
	"lo_import",
	"lo_export",
	"pg_sleep",
	"pg_sleep_for",
	"pg_sleep_until",
	"pg_advisory_lock",
	"pg_advisory_xact_lock",
	"pg_try_advisory_lock",
	"dblink",
)

func isURLDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
