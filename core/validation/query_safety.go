package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Allowed SQL commands for read-only operations
var allowedCommands = map[string]bool{
	"SELECT": true,
	"WITH":   true, // CTE (Common Table Expression) - read-only
}

// Forbidden SQL commands that modify data or schema
var forbiddenCommands = []string{
	"DELETE",
	"DROP",
	"TRUNCATE",
	"INSERT",
	"UPDATE",
	"ALTER",
	"CREATE",
	"GRANT",
	"REVOKE",
	"EXECUTE",
	"EXEC",
	"CALL",
	"MERGE",
	"COPY",
}

var (
	forbiddenPattern = regexp.MustCompile(`\b(` + strings.Join(forbiddenCommands, "|") + `)\b`)
	leadingWord      = regexp.MustCompile(`^[\s(]*([A-Z_]+)`)
	dollarTag        = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)?\$`)
)

// ValidateQuery checks that query is a single read-only statement. Comments,
// string literals, quoted identifiers and dollar-quoted bodies are ignored
// when looking for forbidden commands.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	statements := scrub(query)
	if len(statements) == 0 {
		return fmt.Errorf("query contains no SQL statement")
	}
	if len(statements) > 1 {
		return fmt.Errorf("only a single SQL statement is allowed")
	}

	stmt := strings.ToUpper(statements[0])
	// a parenthesized set operation starts with "("
	m := leadingWord.FindStringSubmatch(stmt)
	if m == nil {
		return fmt.Errorf("unable to identify SQL command (security: unknown command)")
	}
	first := m[1]

	if !allowedCommands[first] {
		if slices.Contains(forbiddenCommands, first) {
			return fmt.Errorf("forbidden SQL command detected: %s (read-only mode)", first)
		}
		return fmt.Errorf("unsupported SQL command: %s (only SELECT and WITH are allowed)", first)
	}

	// commands hidden in CTEs or subqueries
	if hidden := forbiddenPattern.FindString(stmt); hidden != "" {
		return fmt.Errorf("forbidden SQL command detected: %s (security: command found in query)", hidden)
	}
	return nil
}

// scrub drops comments, blanks quoted text and splits the query on
// top-level semicolons. A part holding only whitespace is discarded, but a
// comment after a semicolon still counts as a statement.
func scrub(query string) []string {
	var (
		statements []string
		current    strings.Builder
		seen       bool
	)
	flush := func() {
		if seen {
			statements = append(statements, strings.TrimSpace(current.String()))
		}
		current.Reset()
		seen = false
	}

	for i := 0; i < len(query); {
		c := query[i]
		if c != ';' && !unicode.IsSpace(rune(c)) {
			seen = true
		}
		switch {
		case strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				i = len(query)
			} else {
				i += end
			}
		case strings.HasPrefix(query[i:], "/*"):
			i = skipBlockComment(query, i)
			current.WriteByte(' ')
		case c == '\'' || c == '"':
			i = skipQuoted(query, i+1, c)
			current.WriteByte(' ')
		case c == '$' && dollarTag.MatchString(query[i:]):
			tag := dollarTag.FindString(query[i:])
			end := strings.Index(query[i+len(tag):], tag)
			if end < 0 {
				i = len(query)
			} else {
				i += 2*len(tag) + end
			}
			current.WriteByte(' ')
		case c == ';':
			flush()
			i++
		default:
			current.WriteByte(c)
			i++
		}
	}
	flush()

	return statements
}

// skipQuoted returns the index just past the closing quote q, treating a
// doubled quote as an escaped one.
func skipQuoted(s string, i int, q byte) int {
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(s)
}

// skipBlockComment returns the index just past the comment opened at i.
// Block comments nest, as in PostgreSQL.
func skipBlockComment(s string, i int) int {
	depth := 0
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(s)
}
