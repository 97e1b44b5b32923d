package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type driverFailure int

const (
	failureOther driverFailure = iota
	failureNotFound
	failureConnection
)

// MySQL server error numbers.
const (
	mysqlErrDBAccessDenied   = 1044
	mysqlErrAccessDenied     = 1045
	mysqlErrBadDB            = 1049
	mysqlErrBadTable         = 1051
	mysqlErrNoSuchTable      = 1146
	mysqlErrAccessDeniedNoPw = 1698
)

// classifyDriverError inspects a backend error using the driver packages'
// own error types.
func classifyDriverError(err error) driverFailure {
	if err == nil {
		return failureOther
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return failureConnection
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrNoSuchTable, mysqlErrBadTable:
			return failureNotFound
		case mysqlErrDBAccessDenied, mysqlErrAccessDenied, mysqlErrAccessDeniedNoPw, mysqlErrBadDB:
			return failureConnection
		}
		return failureOther
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifySQLState(string(pqErr.Code))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return failureConnection
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_AUTH, sqlite3.SQLITE_NOTADB:
			return failureConnection
		}
		if strings.Contains(liteErr.Error(), "no such table") {
			return failureNotFound
		}
		return failureOther
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failureOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return failureConnection
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "doesn't exist") || strings.Contains(msg, "does not exist") {
		return failureNotFound
	}
	return failureOther
}

// classifySQLState maps a PostgreSQL SQLSTATE code.
func classifySQLState(code string) driverFailure {
	switch {
	case code == "42P01", code == "3F000":
		return failureNotFound
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "28"):
		return failureConnection
	case code == "57P01", code == "57P02", code == "57P03":
		return failureConnection
	}
	return failureOther
}
