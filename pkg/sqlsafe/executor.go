package sqlsafe

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/logging"
)

// Executor runs rendered statements against the store and classifies
// failures. It never retries: SQL execution is not idempotent in general, so
// failure is surfaced and the caller owns any retry decision.
type Executor struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger
}

// ExecOptions carries the caller's declared permissions for one execution.
type ExecOptions struct {
	// AllowDDL permits DROP/CREATE/ALTER TABLE statements. Read paths must
	// never set it; the table-deletion path sets it explicitly.
	AllowDDL bool
}

// Result holds a fully materialized query result. Column order matches the
// statement's result order; each row is an ordered tuple aligned to Columns.
type Result struct {
	Columns []string
	Rows    [][]any
}

// NewExecutor creates an executor bound to an open store handle. A timeout
// of zero disables the execution time bound.
func NewExecutor(db *sql.DB, timeout time.Duration, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{db: db, timeout: timeout, logger: logger}
}

// Execute classifies, gates and runs a rendered statement.
//
// The statement is rejected before touching the store if it is outside the
// read/DDL allow-list, if it is DDL without the AllowDDL opt-in, or if a
// bound string value carries an injection pattern. Store-level failures come
// back as classified errors with sanitized messages; the raw diagnostic is
// logged server-side only.
func (e *Executor) Execute(ctx context.Context, rendered *RenderedStatement, opts ExecOptions) (*Result, error) {
	normalized, err := Normalize(rendered.SQL)
	if err != nil {
		return nil, err
	}

	class, err := Classify(normalized)
	if err != nil {
		return nil, err
	}
	if class == ClassDDL && !opts.AllowDDL {
		return nil, NewError(KindDDLNotPermitted,
			"schema-modifying statements require an explicit DDL opt-in", nil)
	}

	if hit := CheckArgsForInjection(rendered.Args); hit != nil {
		e.logger.Warn("bound value failed injection check",
			zap.Int("position", hit.Position),
			zap.String("fingerprint", hit.Fingerprint))
		return nil, NewError(KindRejectedStatement,
			"a bound value contains a SQL injection pattern", nil)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if class == ClassDDL {
		if _, err := e.db.ExecContext(ctx, normalized, rendered.Args...); err != nil {
			return nil, e.classifyStoreError(normalized, err)
		}
		return &Result{Columns: []string{}, Rows: [][]any{}}, nil
	}

	rows, err := e.db.QueryContext(ctx, normalized, rendered.Args...)
	if err != nil {
		return nil, e.classifyStoreError(normalized, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, e.classifyStoreError(normalized, err)
	}

	result := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, e.classifyStoreError(normalized, err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, e.classifyStoreError(normalized, err)
	}

	return result, nil
}

// ExecuteQuerySafely is the single entry point collaborators use: render the
// template with validated identifiers and bound values, then classify, gate
// and execute the result.
func (e *Executor) ExecuteQuerySafely(
	ctx context.Context,
	template string,
	identifiers map[string]Identifier,
	values map[string]any,
	allowDDL bool,
) (*Result, error) {
	rendered, err := Render(template, identifiers, values)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, rendered, ExecOptions{AllowDDL: allowDDL})
}

// classifyStoreError maps a driver error onto the closed error taxonomy.
// Anything unmatched becomes KindUnknown with a correlation id; the raw
// diagnostic is logged here and never returned to the caller.
func (e *Executor) classifyStoreError(query string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout,
			"query execution exceeded the configured time limit", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"):
		return NewError(KindNotFound,
			"a referenced table or column does not exist", err)
	case strings.Contains(msg, "syntax error"),
		strings.Contains(msg, "unrecognized token"),
		strings.Contains(msg, "incomplete input"),
		strings.Contains(msg, "no such function"):
		return NewError(KindSyntax, "the statement is not valid SQL", err)
	case strings.Contains(msg, "constraint"):
		return NewError(KindConstraint, "the statement violates a constraint", err)
	case strings.Contains(msg, "unable to open database"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "out of memory"):
		return NewError(KindStoreUnavailable, "the store is unavailable", err)
	}

	correlationID := uuid.NewString()
	e.logger.Error("unclassified store error",
		zap.String("correlation_id", correlationID),
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Error(err))
	return &Error{
		Kind:          KindUnknown,
		Message:       "query execution failed",
		CorrelationID: correlationID,
		Cause:         err,
	}
}
