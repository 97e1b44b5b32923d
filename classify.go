package main

import (
	"strings"
)

// Classification summarizes the statements found in a SQL text.
type Classification struct {
	StatementCount int
	PrimaryType    string
}

// StatementUnknown is reported when a statement does not start with a word.
const StatementUnknown = "UNKNOWN"

// rowReturningTypes are statement types whose success normally produces a
// result set, even an empty one.
var rowReturningTypes = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"EXPLAIN":  true,
	"VALUES":   true,
	"TABLE":    true,
	"PRAGMA":   true,
}

// cteTargets are the verbs that may follow a WITH clause.
var cteTargets = map[string]bool{
	"SELECT": true,
	"INSERT": true,
	"UPDATE": true,
	"DELETE": true,
	"MERGE":  true,
	"VALUES": true,
}

// Classify splits sql into statements and reports the type of the first one.
func Classify(sql string, opts LexOptions) (Classification, error) {
	cleaned, err := RemoveStringsAndComments(sql, opts)
	if err != nil {
		return Classification{}, invalidInput("could not parse SQL: %v", err)
	}

	var statements []string
	for _, part := range strings.Split(cleaned, ";") {
		if strings.TrimSpace(part) != "" {
			statements = append(statements, part)
		}
	}
	if len(statements) == 0 {
		return Classification{}, invalidInput("no SQL statement found")
	}

	return Classification{
		StatementCount: len(statements),
		PrimaryType:    statementType(statements[0]),
	}, nil
}

// IsRowReturning reports whether statements of this type produce rows.
func IsRowReturning(statementType string) bool {
	return rowReturningTypes[statementType]
}

func statementType(stmt string) string {
	stmt = strings.TrimLeft(stmt, " \t\r\n(")
	verb := strings.ToUpper(leadingWord(stmt))
	switch verb {
	case "":
		return StatementUnknown
	case "DESC":
		return "DESCRIBE"
	case "WITH":
		return cteTarget(stmt[len(verb):])
	}
	return verb
}

// cteTarget finds the first verb outside parentheses after a WITH clause.
// Verbs inside CTE bodies are ignored, so a data-modifying CTE such as
// WITH x AS (DELETE ... RETURNING *) SELECT ... classifies as SELECT. Under a
// read-only policy the connection itself refuses the write.
func cteTarget(rest string) string {
	depth := 0
	for i := 0; i < len(rest); {
		switch c := rest[i]; {
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c):
			word := leadingWord(rest[i:])
			if word == "" {
				i++
				continue
			}
			if depth == 0 && cteTargets[strings.ToUpper(word)] {
				return strings.ToUpper(word)
			}
			i += len(word)
		default:
			i++
		}
	}
	return StatementUnknown
}

func leadingWord(s string) string {
	end := 0
	for end < len(s) && isWordByte(s[end]) {
		end++
	}
	// Words start with a letter or underscore.
	if end > 0 && s[0] >= '0' && s[0] <= '9' {
		return ""
	}
	return s[:end]
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
