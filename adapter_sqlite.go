package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SQLiteAdapter implements Dialect for SQLite databases.
type SQLiteAdapter struct{}

func (a *SQLiteAdapter) DriverName() string { return "sqlite" }
func (a *SQLiteAdapter) ServerName() string { return "sqlite-mcp-sql-gateway" }
func (a *SQLiteAdapter) URIScheme() string  { return "sqlite" }

func (a *SQLiteAdapter) BuildDSN(getenv func(string) string) (string, error) {
	dbPath := getenv("MCP_SQLITE_PATH")
	if dbPath == "" {
		return "", fmt.Errorf("missing required environment variable: MCP_SQLITE_PATH")
	}
	return dbPath, nil
}

func (a *SQLiteAdapter) DatabaseName(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	name := filepath.Base(path)
	for _, ext := range []string{".sqlite3", ".sqlite", ".db"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// EnforceReadOnly opens the file read-only and sets query_only on every
// connection through the driver's _pragma parameter.
func (a *SQLiteAdapter) EnforceReadOnly(dsn string) (string, error) {
	var params []string
	if !strings.Contains(dsn, "mode=") {
		params = append(params, "mode=ro")
	}
	params = append(params, "_pragma=query_only(1)")

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&"), nil
}

func (a *SQLiteAdapter) ListTablesQuery() string {
	// SQLite has no information_schema. Use sqlite_master.
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (a *SQLiteAdapter) DescribeTableQuery(table string) string {
	return fmt.Sprintf(`SELECT
			name,
			type,
			CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END,
			CASE WHEN pk > 0 THEN 'PRI' ELSE '' END,
			dflt_value
		FROM pragma_table_info('%s')
		ORDER BY cid`, table)
}

func (a *SQLiteAdapter) SampleQuery(table string, limit int) string { return sampleQuery(table, limit) }

// Lex: no # comments and no backslash escaping; supports backtick and
// [bracket] identifiers.
func (a *SQLiteAdapter) Lex() LexOptions {
	return LexOptions{BacktickIdents: true, BracketIdents: true}
}

func (a *SQLiteAdapter) ForbiddenPatterns() []forbiddenPattern { return sqliteForbidden }

var sqliteForbidden = forbidFunctions(
	"load_extension",
	"readfile",
	"writefile",
	"edit",
	"fts3_tokenizer",
)
