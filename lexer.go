package main

import (
	"fmt"
	"strings"
)

// LexOptions describes the quoting and comment rules of a SQL dialect.
type LexOptions struct {
	// HashComments treats # as the start of a line comment (MySQL).
	HashComments bool

	// BackslashEscapes lets \ escape the next character inside quotes (MySQL).
	BackslashEscapes bool

	// DoubleQuotedStrings treats "..." as a string literal rather than an
	// identifier (MySQL without ANSI_QUOTES).
	DoubleQuotedStrings bool

	// DollarQuotes enables $tag$...$tag$ string bodies (PostgreSQL).
	DollarQuotes bool

	// BacktickIdents enables `ident` quoting.
	BacktickIdents bool

	// BracketIdents enables [ident] quoting (SQLite).
	BracketIdents bool

	// VersionedComments treats the body of /*! ... */ and /*M! ... */ as
	// code, since MySQL and MariaDB execute it.
	VersionedComments bool

	// EscapeStrings lets \ escape the next character inside E'...'
	// literals (PostgreSQL).
	EscapeStrings bool

	// DashCommentNeedsSpace starts a -- comment only when whitespace or a
	// control character follows it, so 1--1 stays arithmetic (MySQL).
	DashCommentNeedsSpace bool
}

// ansiLex is used when no dialect is known.
var ansiLex = LexOptions{}

// RemoveStringsAndComments strips string literals and comments from SQL so
// keywords and statement separators can be found safely. Strings become ''
// (or "" for double-quoted strings) and comments become a single space.
// Quoted identifiers are kept, with any ';' inside them blanked. An
// unterminated literal, identifier or block comment is an error.
func RemoveStringsAndComments(sql string, opts LexOptions) (string, error) {
	var result strings.Builder
	i := 0
	n := len(sql)

	for i < n {
		c := sql[i]

		// Single-line comment starting with --
		if c == '-' && i+1 < n && sql[i+1] == '-' && (!opts.DashCommentNeedsSpace || i+2 == n || sql[i+2] <= ' ') {
			for i < n && sql[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		if c == '#' && opts.HashComments {
			for i < n && sql[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		// Multi-line comment /* */
		if c == '/' && i+1 < n && sql[i+1] == '*' {
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment at offset %d", i)
			}
			if opts.VersionedComments {
				if body, ok := versionedBody(sql[i+2 : i+2+end]); ok {
					cleaned, err := RemoveStringsAndComments(body, opts)
					if err != nil {
						return "", err
					}
					result.WriteByte(' ')
					result.WriteString(cleaned)
					result.WriteByte(' ')
					i += 2 + end + 2
					continue
				}
			}
			i += 2 + end + 2
			result.WriteByte(' ')
			continue
		}

		if c == '$' && opts.DollarQuotes {
			if tag, ok := dollarTag(sql[i:]); ok {
				closeIdx := strings.Index(sql[i+len(tag):], tag)
				if closeIdx < 0 {
					return "", fmt.Errorf("unterminated dollar-quoted string at offset %d", i)
				}
				i += len(tag) + closeIdx + len(tag)
				result.WriteString("''")
				continue
			}
		}

		if c == '\'' || (c == '"' && opts.DoubleQuotedStrings) {
			backslash := opts.BackslashEscapes || (c == '\'' && opts.EscapeStrings && escapePrefix(sql, i))
			end, err := skipQuoted(sql, i, c, backslash)
			if err != nil {
				return "", err
			}
			i = end
			result.WriteByte(c)
			result.WriteByte(c)
			continue
		}

		if c == '"' || (c == '`' && opts.BacktickIdents) {
			end, err := skipQuoted(sql, i, c, false)
			if err != nil {
				return "", err
			}
			result.WriteString(strings.ReplaceAll(sql[i:end], ";", " "))
			i = end
			continue
		}

		if c == '[' && opts.BracketIdents {
			closeIdx := strings.IndexByte(sql[i:], ']')
			if closeIdx < 0 {
				return "", fmt.Errorf("unterminated bracket identifier at offset %d", i)
			}
			result.WriteString(strings.ReplaceAll(sql[i:i+closeIdx+1], ";", " "))
			i += closeIdx + 1
			continue
		}

		result.WriteByte(c)
		i++
	}

	return result.String(), nil
}

// skipQuoted returns the offset just past the quoted section starting at
// start. A doubled quote character is an escaped quote.
func skipQuoted(sql string, start int, quote byte, backslash bool) (int, error) {
	i := start + 1
	n := len(sql)
	for i < n {
		switch {
		case backslash && sql[i] == '\\' && i+1 < n:
			i += 2
		case sql[i] == quote && i+1 < n && sql[i+1] == quote:
			i += 2
		case sql[i] == quote:
			return i + 1, nil
		default:
			i++
		}
	}
	return 0, fmt.Errorf("unterminated %c-quoted section at offset %d", quote, start)
}

// versionedBody returns the executable part of a comment body such as
// "!50000 SLEEP(1) " with the marker and version number removed.
func versionedBody(comment string) (string, bool) {
	switch {
	case strings.HasPrefix(comment, "!"):
		comment = comment[1:]
	case strings.HasPrefix(comment, "M!"):
		comment = comment[2:]
	default:
		return "", false
	}
	return strings.TrimLeft(comment, "0123456789"), true
}

// escapePrefix reports whether the quote at i opens an E'...' literal. The E
// must stand alone, so date'2024-01-01' is not one.
func escapePrefix(sql string, i int) bool {
	if i == 0 || (sql[i-1] != 'E' && sql[i-1] != 'e') {
		return false
	}
	return i == 1 || !isWordByte(sql[i-2])
}

// dollarTag reports the opening tag of a dollar-quoted string, e.g. "$$" or
// "$body$". Positional parameters such as $1 are not tags.
func dollarTag(s string) (string, bool) {
	end := strings.IndexByte(s[1:], '$')
	if end < 0 {
		return "", false
	}
	tag := s[:end+2]
	for j := 1; j < len(tag)-1; j++ {
		ch := tag[j]
		if !(ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || j > 1 && ch >= '0' && ch <= '9') {
			return "", false
		}
	}
	return tag, true
}
