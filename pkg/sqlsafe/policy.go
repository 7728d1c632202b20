package sqlsafe

import (
	"fmt"
	"strings"
)

// StatementClass is the policy classification of a statement.
type StatementClass int

const (
	// ClassRead covers SELECT and WITH statements.
	ClassRead StatementClass = iota
	// ClassDDL covers DROP TABLE, CREATE TABLE and ALTER TABLE. Executable
	// only with an explicit DDL opt-in.
	ClassDDL
)

// String returns the string representation of the statement class.
func (c StatementClass) String() string {
	switch c {
	case ClassRead:
		return "READ"
	case ClassDDL:
		return "DDL"
	default:
		return "UNKNOWN"
	}
}

// readPrefixes and ddlPrefixes are the full allow-list. A statement whose
// leading keywords match neither list is rejected unconditionally: INSERT,
// UPDATE, DELETE, PRAGMA, ATTACH and friends have no safe dynamic form here.
var (
	readPrefixes = []string{"SELECT", "WITH"}
	ddlPrefixes  = []string{"DROP TABLE", "CREATE TABLE", "ALTER TABLE"}
)

// Classify normalizes a statement and decides whether it is a read or a DDL
// statement. Multi-statement payloads (a semicolon outside string literals
// after the trailing semicolon is stripped) and statements outside the
// allow-list fail with KindRejectedStatement.
func Classify(sql string) (StatementClass, error) {
	normalized, err := Normalize(sql)
	if err != nil {
		return 0, err
	}
	if normalized == "" {
		return 0, NewError(KindRejectedStatement, "statement is empty", nil)
	}

	upper := strings.ToUpper(normalized)
	for _, p := range readPrefixes {
		if hasKeywordPrefix(upper, p) {
			// SQLite accepts DML after a CTE prologue, e.g.
			// WITH t AS (SELECT 1) DELETE FROM users. The leading keyword
			// alone cannot tell that apart from a read.
			if hasTopLevelWriteKeyword(upper) {
				return 0, NewError(KindRejectedStatement,
					"write statements are not permitted, even behind a WITH clause", nil)
			}
			return ClassRead, nil
		}
	}
	for _, p := range ddlPrefixes {
		if hasKeywordPrefix(upper, p) {
			return ClassDDL, nil
		}
	}

	leading := upper
	if i := strings.IndexAny(leading, " \t\n\r"); i > 0 {
		leading = leading[:i]
	}
	return 0, NewError(KindRejectedStatement,
		fmt.Sprintf("statement kind %q is not permitted; only SELECT, WITH and table DDL are supported", leading), nil)
}

// Normalize strips the trailing semicolon and rejects multi-statement
// payloads. Any semicolon that remains after normalization, outside string
// literals, means more than one statement.
func Normalize(sql string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sql))
	if hasSemicolonOutsideStrings(normalized) {
		return "", NewError(KindRejectedStatement,
			"multiple SQL statements are not allowed; only single statements are permitted", nil)
	}
	return normalized, nil
}

// hasKeywordPrefix reports whether upper starts with the keyword sequence
// prefix followed by a boundary (whitespace, end of statement, or a quote or
// parenthesis opening the next token).
func hasKeywordPrefix(upper, prefix string) bool {
	if !strings.HasPrefix(upper, prefix) {
		return false
	}
	if len(upper) == len(prefix) {
		return true
	}
	switch upper[len(prefix)] {
	case ' ', '\t', '\n', '\r', '(', '"':
		return true
	}
	return false
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals. SQLite has no backslash escapes: a quote always
// closes the literal, and the standard doubled-quote escape ('') works out as
// exit-then-reenter.
func hasSemicolonOutsideStrings(sql string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal

	for _, char := range sql {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if char == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		}
	}

	return false
}

// writeKeywords are the DML verbs SQLite permits after a CTE prologue.
var writeKeywords = map[string]bool{
	"INSERT":  true,
	"UPDATE":  true,
	"DELETE":  true,
	"REPLACE": true,
}

// hasTopLevelWriteKeyword scans an upper-cased statement for a write verb at
// parenthesis depth zero, skipping string literals and quoted identifiers.
// Verbs inside subqueries stay below depth zero and never match; bare
// DELETE/UPDATE at the top level of a WITH statement can only be DML.
func hasTopLevelWriteKeyword(upper string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	depth := 0
	var word strings.Builder

	endWord := func() bool {
		hit := depth == 0 && writeKeywords[word.String()]
		word.Reset()
		return hit
	}

	for _, char := range upper {
		switch state {
		case stateNormal:
			switch {
			case char == '\'':
				if endWord() {
					return true
				}
				state = stateSingleQuote
			case char == '"':
				if endWord() {
					return true
				}
				state = stateDoubleQuote
			case char == '(':
				if endWord() {
					return true
				}
				depth++
			case char == ')':
				if endWord() {
					return true
				}
				depth--
			case char >= 'A' && char <= 'Z' || char >= '0' && char <= '9' || char == '_':
				word.WriteRune(char)
			default:
				if endWord() {
					return true
				}
			}
		case stateSingleQuote:
			if char == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		}
	}

	return endWord()
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(sql string) string {
	sql = strings.TrimRight(sql, " \t\n\r")
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimRight(strings.TrimSuffix(sql, ";"), " \t\n\r")
	}
	return sql
}
