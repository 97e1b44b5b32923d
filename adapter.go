package main

import (
	"fmt"
	"strings"
)

// Dialect defines the contract for backend-specific behavior.
// Each supported database (MySQL, PostgreSQL, SQLite) implements this interface.
type Dialect interface {
	// DriverName returns the driver the session is opened with (e.g., "mysql", "postgres", "pgx", "sqlite").
	DriverName() string

	// ServerName returns the MCP server name for this dialect.
	ServerName() string

	// URIScheme returns the resource URI scheme (e.g., "mysql", "postgres", "sqlite").
	URIScheme() string

	// BuildDSN constructs a DSN from environment variables.
	BuildDSN(getenv func(string) string) (string, error)

	// DatabaseName extracts the database/file name from a DSN string.
	DatabaseName(dsn string) string

	// EnforceReadOnly rewrites a DSN so every connection opened from it is read-only.
	EnforceReadOnly(dsn string) (string, error)

	// ListTablesQuery returns the statement whose first column lists table names.
	ListTablesQuery() string

	// DescribeTableQuery returns the statement describing one table as
	// (name, type, nullable, key, default) rows. table must already be validated.
	DescribeTableQuery(table string) string

	// SampleQuery returns a bounded row fetch. table must already be validated.
	SampleQuery(table string, limit int) string

	// Lex returns the quoting and comment rules used to classify statements.
	Lex() LexOptions

	// ForbiddenPatterns returns constructs rejected in any query.
	ForbiddenPatterns() []forbiddenPattern
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return &MySQLAdapter{}, nil
	case "postgres", "postgresql":
		return &PostgresAdapter{}, nil
	case "pgx":
		return &PostgresAdapter{Native: true}, nil
	case "sqlite", "sqlite3":
		return &SQLiteAdapter{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q (must be mysql, postgres, pgx or sqlite)", driver)
	}
}

// sampleQuery is shared by every dialect: all of them accept LIMIT.
func sampleQuery(table string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit)
}

func missingEnv(getenv func(string) string, names ...string) []string {
	var missing []string
	for _, name := range names {
		if getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
