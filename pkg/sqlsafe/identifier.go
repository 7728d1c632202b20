// Package sqlsafe is the SQL security and safe execution layer.
//
// Everything that reaches the store from an externally-influenced source (an
// uploaded filename, a column name from a payload, a statement produced by a
// language model) passes through this package: identifier validation,
// template rendering with bound values, read/DDL policy classification, and
// classified execution. Nothing in this package concatenates unvalidated
// input into SQL text.
package sqlsafe

import (
	"fmt"
	"regexp"
	"strings"
)

// IdentifierKind distinguishes table and column names in error messages.
type IdentifierKind string

const (
	IdentifierTable  IdentifierKind = "table"
	IdentifierColumn IdentifierKind = "column"
)

// MaxIdentifierLength bounds table and column names. SQLite itself accepts
// longer names; the cap exists to keep generated DDL and log lines sane.
const MaxIdentifierLength = 64

// identifierRegex is the only shape an identifier may take: letters, digits
// and underscore, not starting with a digit.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords are SQL keywords that are never valid table or column names,
// even though they match the identifier pattern.
var reservedWords = map[string]struct{}{
	"ALL": {}, "ALTER": {}, "AND": {}, "AS": {}, "ATTACH": {}, "BEGIN": {},
	"BETWEEN": {}, "BY": {}, "CASE": {}, "CHECK": {}, "COLUMN": {},
	"COMMIT": {}, "CREATE": {}, "CROSS": {}, "DEFAULT": {}, "DELETE": {},
	"DETACH": {}, "DISTINCT": {}, "DROP": {}, "ELSE": {}, "END": {},
	"EXCEPT": {}, "EXISTS": {}, "FOREIGN": {}, "FROM": {}, "FULL": {},
	"GROUP": {}, "HAVING": {}, "IN": {}, "INDEX": {}, "INNER": {},
	"INSERT": {}, "INTERSECT": {}, "INTO": {}, "IS": {}, "JOIN": {},
	"KEY": {}, "LEFT": {}, "LIKE": {}, "LIMIT": {}, "NOT": {}, "NULL": {},
	"ON": {}, "OR": {}, "ORDER": {}, "OUTER": {}, "PRAGMA": {},
	"PRIMARY": {}, "REFERENCES": {}, "RIGHT": {}, "ROLLBACK": {},
	"SELECT": {}, "SET": {}, "TABLE": {}, "THEN": {}, "TRANSACTION": {},
	"UNION": {}, "UPDATE": {}, "VALUES": {}, "WHEN": {}, "WHERE": {},
	"WITH": {},
}

// Identifier is a table or column name that passed validation. The zero
// value is not valid; the only way to obtain a usable Identifier is
// ValidateIdentifier, which is what makes it safe to substitute into the
// identifier position of a statement template.
type Identifier struct {
	name string
}

// String returns the validated name.
func (id Identifier) String() string {
	return id.name
}

// IsZero reports whether the identifier was never validated.
func (id Identifier) IsZero() bool {
	return id.name == ""
}

// Quoted returns the name double-quoted for use in SQL text. Validation
// already excludes quote characters, so no escaping is needed.
func (id Identifier) Quoted() string {
	return `"` + id.name + `"`
}

// ValidateIdentifier checks that raw is a safe SQL identifier of the given
// kind and returns it as an Identifier. It must be called on every
// externally-influenced name before that name touches a statement template.
//
// Validation is idempotent: the output re-validates to an equal Identifier.
func ValidateIdentifier(raw string, kind IdentifierKind) (Identifier, error) {
	if raw == "" {
		return Identifier{}, NewError(KindInvalidIdentifier,
			fmt.Sprintf("%s name is empty", kind), nil)
	}
	if len(raw) > MaxIdentifierLength {
		return Identifier{}, NewError(KindInvalidIdentifier,
			fmt.Sprintf("%s name exceeds %d characters", kind, MaxIdentifierLength), nil)
	}
	if !identifierRegex.MatchString(raw) {
		return Identifier{}, NewError(KindInvalidIdentifier,
			fmt.Sprintf("%s name %q contains invalid characters; only letters, digits and underscore are allowed and the first character must not be a digit", kind, raw), nil)
	}
	if _, reserved := reservedWords[strings.ToUpper(raw)]; reserved {
		return Identifier{}, NewError(KindInvalidIdentifier,
			fmt.Sprintf("%s name %q is a reserved SQL keyword", kind, raw), nil)
	}
	return Identifier{name: raw}, nil
}
