package main

import (
	"fmt"
	"regexp"

	"github.com/go-sql-driver/mysql"
)

// MySQLAdapter implements Dialect for MySQL databases.
type MySQLAdapter struct{}

func (a *MySQLAdapter) DriverName() string { return "mysql" }
func (a *MySQLAdapter) ServerName() string { return "mysql-mcp-sql-gateway" }
func (a *MySQLAdapter) URIScheme() string  { return "mysql" }

func (a *MySQLAdapter) BuildDSN(getenv func(string) string) (string, error) {
	if missing := missingEnv(getenv, "MCP_MYSQL_HOST", "MCP_MYSQL_PORT", "MCP_MYSQL_DB", "MCP_MYSQL_USER", "MCP_MYSQL_PASSWORD"); len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variables: %v", missing)
	}

	cfg := mysql.NewConfig()
	cfg.User = getenv("MCP_MYSQL_USER")
	cfg.Passwd = getenv("MCP_MYSQL_PASSWORD")
	cfg.Net = "tcp"
	cfg.Addr = getenv("MCP_MYSQL_HOST") + ":" + getenv("MCP_MYSQL_PORT")
	cfg.DBName = getenv("MCP_MYSQL_DB")
	return cfg.FormatDSN(), nil
}

func (a *MySQLAdapter) DatabaseName(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return ""
	}
	return cfg.DBName
}

// EnforceReadOnly sets transaction_read_only as a session variable, which
// the driver applies to every pooled connection.
func (a *MySQLAdapter) EnforceReadOnly(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["transaction_read_only"] = "1"
	return cfg.FormatDSN(), nil
}

func (a *MySQLAdapter) ListTablesQuery() string { return "SHOW TABLES" }

// DescribeTableQuery returns DESCRIBE, whose Field, Type, Null, Key, Default
// columns already are the positional layout expected by DescribeTable.
func (a *MySQLAdapter) DescribeTableQuery(table string) string { return "DESCRIBE " + table }

func (a *MySQLAdapter) SampleQuery(table string, limit int) string { return sampleQuery(table, limit) }

func (a *MySQLAdapter) Lex() LexOptions {
	return LexOptions{
		HashComments:        true,
		BackslashEscapes:    true,
		DoubleQuotedStrings: true,
		BacktickIdents:      true,

		VersionedComments:     true,
		DashCommentNeedsSpace: true,
	}
}

func (a *MySQLAdapter) ForbiddenPatterns() []forbiddenPattern { return mysqlForbidden }

var mysqlForbidden = append([]forbiddenPattern{
	{regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`), "INTO OUTFILE"},
	{regexp.MustCompile(`(?i)\bINTO\s+DUMPFILE\b`), "INTO DUMPFILE"},
	{regexp.MustCompile(`(?i)\bINTO\s+@`), "INTO @variable"},
}, forbidFunctions(
	"LOAD_FILE",
	"SLEEP",
	"BENCHMARK",
	"GET_LOCK",
	"RELEASE_LOCK",
	"IS_FREE_LOCK",
	"IS_USED_LOCK",
	"WAIT_FOR_EXECUTED_GTID_SET",
	"WAIT_UNTIL_SQL_THREAD_AFTER_GTIDS",
	"MASTER_POS_WAIT",
	"SOURCE_POS_WAIT",
)...)
