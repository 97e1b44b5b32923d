package main

import (
	"errors"
	"fmt"
)

// Error kinds returned by the query and schema operations. Handlers match on
// these with errors.Is to pick a response status.
var (
	// ErrInvalidInput means the caller's SQL, table name or statement type
	// violates policy. The session is never touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabaseConnection means the session is missing or the backend failed
	// at the transport or authentication level.
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrSchemaFetch means listing tables failed during schema introspection.
	ErrSchemaFetch = errors.New("schema fetch error")

	// ErrTableDescribe means describing a single table failed.
	ErrTableDescribe = errors.New("table describe error")

	// ErrQueryExecution means a validated statement failed while running or
	// while its rows were being read.
	ErrQueryExecution = errors.New("query execution error")
)

// notFoundMarker is embedded in messages about missing tables so the status
// mapping can tell a 404 from a 500.
const notFoundMarker = "not found"

// OpError is the concrete error returned by every operation.
type OpError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *OpError) Is(target error) bool {
	return target == e.Kind
}

// KindOf returns the kind of the outermost OpError in err's chain, or nil.
func KindOf(err error) error {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return nil
}

// KindName returns the taxonomy name for a kind sentinel.
func KindName(kind error) string {
	switch kind {
	case ErrInvalidInput:
		return "InvalidInputError"
	case ErrDatabaseConnection:
		return "DatabaseConnectionError"
	case ErrSchemaFetch:
		return "SchemaFetchError"
	case ErrTableDescribe:
		return "TableDescribeError"
	case ErrQueryExecution:
		return "QueryExecutionError"
	default:
		return "UnknownError"
	}
}

func invalidInput(format string, args ...any) error {
	return &OpError{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func connectionError(cause error, format string, args ...any) error {
	return &OpError{Kind: ErrDatabaseConnection, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func schemaFetchError(cause error, format string, args ...any) error {
	return &OpError{Kind: ErrSchemaFetch, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func describeError(cause error, format string, args ...any) error {
	return &OpError{Kind: ErrTableDescribe, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func executionError(cause error, format string, args ...any) error {
	return &OpError{Kind: ErrQueryExecution, Msg: fmt.Sprintf(format, args...), Err: cause}
}

var errNoSession = errors.New("no database session available")
