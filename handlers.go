package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Tool names
const (
	ToolSQLQuery      = "sql_query"
	ToolListTables    = "list_tables"
	ToolDescribeTable = "describe_table"
)

func (s *MCPServer) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &Error{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	s.initialized = true

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{},
			Resources: &ResourcesCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    s.dialect.ServerName(),
			Version: ServerVersion,
		},
	}, nil
}

func (s *MCPServer) handleListTools() (*ListToolsResult, *Error) {
	return &ListToolsResult{
		Tools: []Tool{
			{
				Name: ToolSQLQuery,
				Description: fmt.Sprintf("Execute a single SQL statement. Allowed statement types: %s",
					describeAllowed(s.allowed)),
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql": {
							Type:        "string",
							Description: "The SQL statement to execute",
						},
						"format": {
							Type:        "string",
							Description: "Result format: csv (default) or json",
						},
					},
					Required: []string{"sql"},
				},
			},
			{
				Name:        ToolListTables,
				Description: "List the tables of the connected database",
				InputSchema: InputSchema{
					Type:       "object",
					Properties: map[string]Property{},
					Required:   []string{},
				},
			},
			{
				Name:        ToolDescribeTable,
				Description: "Describe the columns of a table",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"table": {
							Type:        "string",
							Description: "Table name",
						},
					},
					Required: []string{"table"},
				},
			},
		},
	}, nil
}

func (s *MCPServer) handleCallTool(ctx context.Context, logger *slog.Logger, params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	if err := s.admit(callParams.Meta); err != nil {
		return toolError(logger, err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var text string
	var err error
	switch callParams.Name {
	case ToolSQLQuery:
		text, err = s.callSQLQuery(ctx, callParams.Arguments)
	case ToolListTables:
		text, err = s.callListTables(ctx)
	case ToolDescribeTable:
		table, _ := callParams.Arguments["table"].(string)
		text, err = s.describeJSON(ctx, table)
	default:
		return nil, &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Unknown tool: %s", callParams.Name),
		}
	}
	if err != nil {
		return toolError(logger, err), nil
	}

	return &CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}, nil
}

func (s *MCPServer) callSQLQuery(ctx context.Context, args map[string]any) (string, error) {
	query, ok := args["sql"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", invalidInput("missing or invalid 'sql' parameter")
	}
	requested, _ := args["format"].(string)
	format, err := ParseFormat(requested)
	if err != nil {
		return "", err
	}

	outcome, err := ExecuteQuery(ctx, s.session, query, s.allowed)
	if err != nil {
		return "", err
	}
	return RenderOutcome(outcome, format, s.maxRows)
}

func (s *MCPServer) callListTables(ctx context.Context) (string, error) {
	tables, err := ListTables(ctx, s.session)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return InfoNoTables, nil
	}
	return strings.Join(tables, "\n"), nil
}

func (s *MCPServer) describeJSON(ctx context.Context, table string) (string, error) {
	meta, err := DescribeTable(ctx, s.session, table)
	if err != nil {
		return "", err
	}
	return renderJSON(meta)
}

func (s *MCPServer) handleListResources(ctx context.Context, logger *slog.Logger, params json.RawMessage) (*ListResourcesResult, *Error) {
	var p MetaParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &Error{Code: InvalidParams, Message: "Invalid parameters", Data: err.Error()}
		}
	}
	if err := s.creds.Check(p.Meta); err != nil {
		return nil, resourceError(logger, err)
	}

	scheme := s.dialect.URIScheme()
	resources := []Resource{{
		URI:         scheme + "://schemas",
		Name:        "Database schema",
		Description: fmt.Sprintf("Columns of every table in %s", s.displayName()),
		MimeType:    "text/plain",
	}}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tables, err := ListTables(ctx, s.session)
	if err != nil {
		// The static schema resource stays listed.
		logger.Warn("failed to list tables for resources", "error", err)
		return &ListResourcesResult{Resources: resources}, nil
	}

	for _, table := range tables {
		resources = append(resources,
			Resource{
				URI:      fmt.Sprintf("%s://metadata/tables/%s", scheme, table),
				Name:     fmt.Sprintf("Metadata for table '%s'", table),
				MimeType: "application/json",
			},
			Resource{
				URI:      fmt.Sprintf("%s://tables/%s", scheme, table),
				Name:     fmt.Sprintf("Sample rows of table '%s'", table),
				MimeType: "text/csv",
			},
		)
	}

	return &ListResourcesResult{Resources: resources}, nil
}

func (s *MCPServer) handleListResourceTemplates() (*ListResourceTemplatesResult, *Error) {
	scheme := s.dialect.URIScheme()
	return &ListResourceTemplatesResult{
		ResourceTemplates: []ResourceTemplate{
			{
				URITemplate: scheme + "://tables/{table}{?limit}",
				Name:        "Table sample",
				Description: fmt.Sprintf("First rows of a table (default %d)", DefaultSampleLimit),
				MimeType:    "text/csv",
			},
			{
				URITemplate: scheme + "://metadata/tables/{table}",
				Name:        "Table metadata",
				Description: "Column names, types, nullability, keys and defaults of a table",
				MimeType:    "application/json",
			},
		},
	}, nil
}

func (s *MCPServer) handleReadResource(ctx context.Context, logger *slog.Logger, params json.RawMessage) (*ReadResourceResult, *Error) {
	var readParams ReadResourceParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	if err := s.admit(readParams.Meta); err != nil {
		return nil, resourceError(logger, err)
	}

	uri := readParams.URI
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != s.dialect.URIScheme() {
		return nil, &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid resource URI: must start with %s://", s.dialect.URIScheme()),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	path := strings.TrimPrefix(u.Path, "/")
	var text, mimeType string
	switch {
	case u.Host == "schemas" && path == "":
		mimeType = "text/plain"
		var outcome Outcome
		if outcome, err = FetchSchemaReport(ctx, s.session); err == nil {
			text, err = RenderOutcome(outcome, FormatCSV, 0)
		}
	case u.Host == "tables" && path != "":
		mimeType = "text/csv"
		var outcome Outcome
		if outcome, err = SampleTable(ctx, s.session, path, parseLimit(u.Query().Get("limit"))); err == nil {
			text, err = RenderOutcome(outcome, FormatCSV, s.maxRows)
		}
	case u.Host == "metadata" && strings.HasPrefix(path, "tables/"):
		mimeType = "application/json"
		text, err = s.describeJSON(ctx, strings.TrimPrefix(path, "tables/"))
	default:
		return nil, &Error{
			Code:    ResourceNotFound,
			Message: fmt.Sprintf("Resource not found: %s", uri),
		}
	}
	if err != nil {
		return nil, resourceError(logger, err)
	}

	return &ReadResourceResult{
		Contents: []ResourceContent{
			{
				URI:      uri,
				MimeType: mimeType,
				Text:     text,
			},
		},
	}, nil
}

// admit authenticates a data request and takes a rate limit token.
func (s *MCPServer) admit(meta map[string]any) error {
	if err := s.creds.Check(meta); err != nil {
		return err
	}
	if !s.limiter.Allow() {
		return &RequestError{Status: http.StatusTooManyRequests, Message: "Rate limit exceeded, try again later"}
	}
	return nil
}

func (s *MCPServer) displayName() string {
	if s.databaseName == "" {
		return "the database"
	}
	return s.databaseName
}

// parseLimit returns 0 for anything that is not an integer, which
// SampleTable replaces with its default.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func toolError(logger *slog.Logger, err error) *CallToolResult {
	status := StatusFor(err)
	logger.Warn("tool call failed", "status", status, "error", err)
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: fmt.Sprintf("Error (%d %s): %v", status, ErrorLabel(err), err)}},
		IsError: true,
	}
}

func resourceError(logger *slog.Logger, err error) *Error {
	status := StatusFor(err)
	logger.Warn("resource read failed", "status", status, "error", err)

	code := InternalError
	switch status {
	case http.StatusBadRequest:
		code = InvalidParams
	case http.StatusNotFound:
		code = ResourceNotFound
	}
	return &Error{
		Code:    code,
		Message: err.Error(),
		Data: ErrorData{
			Status:  status,
			Error:   ErrorLabel(err),
			Details: err.Error(),
		},
	}
}
