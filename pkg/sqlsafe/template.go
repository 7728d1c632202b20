package sqlsafe

import (
	"fmt"
	"regexp"
)

// Statement templates carry two placeholder kinds that must never be mixed:
//
//	{name}   identifier placeholder, substituted with a validated Identifier
//	{{name}} value placeholder, rewritten to a numbered bind parameter
//
// Value content never enters the SQL text; it is returned as ordered bind
// arguments for the driver's native parameter mechanism.

// valueParamRegex matches {{name}} value placeholders.
var valueParamRegex = regexp.MustCompile(`\{\{([a-zA-Z_]\w*)\}\}`)

// identifierParamRegex matches {name} identifier placeholders. Rendering
// rewrites value placeholders first, so the double-brace form can no longer
// be confused with this one.
var identifierParamRegex = regexp.MustCompile(`\{([a-zA-Z_]\w*)\}`)

// RenderedStatement is a SQL string with all identifier placeholders
// substituted and an ordered argument list for the remaining bind parameters.
type RenderedStatement struct {
	SQL  string
	Args []any
}

// Render fills a statement template. Identifier bindings must already be
// validated Identifiers; a zero-value Identifier is rejected even though the
// type makes constructing one without validation impossible in practice.
// A placeholder of either kind with no binding fails closed.
func Render(template string, identifiers map[string]Identifier, values map[string]any) (*RenderedStatement, error) {
	sql, args, err := substituteValues(template, values)
	if err != nil {
		return nil, err
	}

	sql, err = substituteIdentifiers(sql, identifiers)
	if err != nil {
		return nil, err
	}

	return &RenderedStatement{SQL: sql, Args: args}, nil
}

// substituteValues rewrites {{name}} placeholders to numbered ?N binds and
// returns the bind values ordered by first appearance. A placeholder that
// appears more than once reuses its position.
func substituteValues(template string, values map[string]any) (string, []any, error) {
	var unbound string
	var args []any
	positions := make(map[string]int)

	result := valueParamRegex.ReplaceAllStringFunc(template, func(match string) string {
		name := valueParamRegex.FindStringSubmatch(match)[1]

		if pos, seen := positions[name]; seen {
			return fmt.Sprintf("?%d", pos)
		}

		value, bound := values[name]
		if !bound {
			if unbound == "" {
				unbound = name
			}
			return match
		}

		pos := len(args) + 1
		positions[name] = pos
		args = append(args, value)
		return fmt.Sprintf("?%d", pos)
	})

	if unbound != "" {
		return "", nil, NewError(KindUnboundPlaceholder,
			fmt.Sprintf("value placeholder {{%s}} has no binding", unbound), nil)
	}
	return result, args, nil
}

// substituteIdentifiers rewrites {name} placeholders to quoted validated
// identifiers.
func substituteIdentifiers(sql string, identifiers map[string]Identifier) (string, error) {
	var renderErr error

	result := identifierParamRegex.ReplaceAllStringFunc(sql, func(match string) string {
		name := identifierParamRegex.FindStringSubmatch(match)[1]

		id, bound := identifiers[name]
		if !bound {
			if renderErr == nil {
				renderErr = NewError(KindUnboundPlaceholder,
					fmt.Sprintf("identifier placeholder {%s} has no binding", name), nil)
			}
			return match
		}
		if id.IsZero() {
			if renderErr == nil {
				renderErr = NewError(KindUnvalidatedIdentifier,
					fmt.Sprintf("identifier placeholder {%s} was bound with an unvalidated identifier", name), nil)
			}
			return match
		}
		return id.Quoted()
	})

	if renderErr != nil {
		return "", renderErr
	}
	return result, nil
}
