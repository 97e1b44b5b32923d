package main

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		count int
		typ   string
	}{
		{"SELECT 1", 1, "SELECT"},
		{"select 1", 1, "SELECT"},
		{"insert into t values (1)", 1, "INSERT"},
		{"DESC users", 1, "DESCRIBE"},
		{"describe users", 1, "DESCRIBE"},
		{"SHOW TABLES", 1, "SHOW"},
		{"EXPLAIN SELECT 1", 1, "EXPLAIN"},
		{"  \n\t(SELECT 1) UNION (SELECT 2)", 1, "SELECT"},
		{"WITH a AS (SELECT 1) SELECT * FROM a", 1, "SELECT"},
		{"WITH a AS (SELECT 1), b AS (SELECT 2) INSERT INTO t SELECT * FROM b", 1, "INSERT"},
		{"WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM n) SELECT x FROM n", 1, "SELECT"},
		{"WITH gone AS (DELETE FROM t RETURNING *) SELECT * FROM gone", 1, "SELECT"},
		{"WITH a AS (SELECT 1)", 1, StatementUnknown},
		{"FROBNICATE everything", 1, "FROBNICATE"},
		{"*", 1, StatementUnknown},
		{"SELECT 1; SELECT 2", 2, "SELECT"},
		{"DELETE FROM t; SELECT 1; SELECT 2;", 3, "DELETE"},
		{"-- header\nUPDATE t SET a = 1", 1, "UPDATE"},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			class, err := Classify(tc.query, ansiLex)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if class.StatementCount != tc.count {
				t.Errorf("Expected %d statements, got %d", tc.count, class.StatementCount)
			}
			if class.PrimaryType != tc.typ {
				t.Errorf("Expected type %s, got %s", tc.typ, class.PrimaryType)
			}
		})
	}
}

func TestClassify_NoStatements(t *testing.T) {
	for _, query := range []string{"", ";;", "  -- nothing\n"} {
		_, err := Classify(query, ansiLex)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Classify(%q): expected InvalidInput, got %v", query, err)
		}
	}
}

func TestIsRowReturning(t *testing.T) {
	for _, typ := range []string{"SELECT", "SHOW", "DESCRIBE", "EXPLAIN", "VALUES", "PRAGMA"} {
		if !IsRowReturning(typ) {
			t.Errorf("Expected %s to be row-returning", typ)
		}
	}
	for _, typ := range []string{"INSERT", "UPDATE", "CREATE", StatementUnknown} {
		if IsRowReturning(typ) {
			t.Errorf("Expected %s not to be row-returning", typ)
		}
	}
}

func TestRemoveStringsAndComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single-quoted string stripped",
			input:    "SELECT * FROM users WHERE name = 'DROP TABLE'",
			expected: "SELECT * FROM users WHERE name = ''",
		},
		{
			name:     "doubled quote inside string",
			input:    "SELECT 'it''s' AS x",
			expected: "SELECT '' AS x",
		},
		{
			name:     "-- comment stripped",
			input:    "SELECT * FROM users -- comment",
			expected: "SELECT * FROM users  ",
		},
		{
			name:     "/* */ comment stripped",
			input:    "SELECT * FROM users /* comment */",
			expected: "SELECT * FROM users  ",
		},
		{
			name:     "double-quoted identifier preserved",
			input:    `SELECT "my col" FROM t`,
			expected: `SELECT "my col" FROM t`,
		},
		{
			name:     "# is not a comment by default",
			input:    "SELECT # FROM users",
			expected: "SELECT # FROM users",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := RemoveStringsAndComments(tc.input, ansiLex)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestRemoveStringsAndComments_Unterminated(t *testing.T) {
	inputs := []string{
		"SELECT 'abc",
		"SELECT /* abc",
		`SELECT "abc`,
	}
	for _, input := range inputs {
		if _, err := RemoveStringsAndComments(input, ansiLex); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}
