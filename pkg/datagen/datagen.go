// Package datagen synthesizes extra rows for an existing table: sample the
// real data, ask the model for rows that follow the same patterns, validate
// them against the table's declared types, insert transactionally.
//
// Reads go through the safe execution layer. The insert is a fixed-shape
// statement with validated identifiers and bound values on the package's own
// transaction; the policy gate rejects INSERT for dynamic callers by design.
package datagen

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/llm"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

const (
	// SampleSize is how many existing rows are shown to the model.
	SampleSize = 10
	// GeneratedRowCount is how many rows one generation round produces.
	GeneratedRowCount = 10
)

// Result reports one generation round.
type Result struct {
	RowsGenerated int
	Message       string
}

// Service generates synthetic rows.
type Service struct {
	db     *sql.DB
	exec   *sqlsafe.Executor
	gen    llm.Generator
	logger *zap.Logger
}

// NewService creates a datagen service.
func NewService(db *sql.DB, exec *sqlsafe.Executor, gen llm.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, exec: exec, gen: gen, logger: logger.Named("datagen")}
}

// Generate synthesizes and inserts rows for the given table. The table must
// exist and hold at least one row to sample patterns from.
func (s *Service) Generate(ctx context.Context, table sqlsafe.Identifier) (*Result, error) {
	tableSchema, err := s.tableSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	if tableSchema.RowCount == 0 {
		return nil, fmt.Errorf("table %q is empty; nothing to sample patterns from", table.String())
	}

	sample, err := s.sampleRows(ctx, table, tableSchema)
	if err != nil {
		return nil, err
	}

	generated, err := s.gen.GenerateRows(ctx, table.String(), tableSchema, sample, GeneratedRowCount)
	if err != nil {
		return nil, err
	}

	validated, err := validateRows(generated, tableSchema)
	if err != nil {
		return nil, err
	}

	inserted, err := s.insertRows(ctx, table, tableSchema, validated)
	if err != nil {
		return nil, err
	}

	s.logger.Info("synthetic rows inserted",
		zap.String("table", table.String()),
		zap.Int("rows", inserted))

	return &Result{
		RowsGenerated: inserted,
		Message:       fmt.Sprintf("Successfully generated and inserted %d rows", inserted),
	}, nil
}

func (s *Service) tableSchema(ctx context.Context, table sqlsafe.Identifier) (schema.Table, error) {
	snapshot, err := schema.TakeSnapshot(ctx, s.db)
	if err != nil {
		return schema.Table{}, err
	}
	tableSchema, ok := snapshot.Tables[table.String()]
	if !ok {
		return schema.Table{}, sqlsafe.NewError(sqlsafe.KindNotFound,
			fmt.Sprintf("table %q does not exist", table.String()), nil)
	}
	return tableSchema, nil
}

// sampleRows reads up to SampleSize rows, randomly when the table is larger
// than the sample.
func (s *Service) sampleRows(ctx context.Context, table sqlsafe.Identifier, tableSchema schema.Table) ([]map[string]any, error) {
	ids := map[string]sqlsafe.Identifier{"table": table}

	var result *sqlsafe.Result
	var err error
	if tableSchema.RowCount <= SampleSize {
		result, err = s.exec.ExecuteQuerySafely(ctx, `SELECT * FROM {table}`, ids, nil, false)
	} else {
		result, err = s.exec.ExecuteQuerySafely(ctx,
			`SELECT * FROM {table} ORDER BY RANDOM() LIMIT {{n}}`,
			ids, map[string]any{"n": SampleSize}, false)
	}
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(result.Rows))
	for _, tuple := range result.Rows {
		row := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			row[col] = tuple[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// validateRows checks generated rows against the table's declared types and
// coerces numeric values. Unknown columns are rejected rather than dropped
// so a drifting model response fails loudly.
func validateRows(rows []map[string]any, tableSchema schema.Table) ([]map[string]any, error) {
	validated := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		out := make(map[string]any, len(row))
		for col, value := range row {
			declared, known := tableSchema.Columns[col]
			if !known {
				return nil, fmt.Errorf("row %d: generated column %q does not exist in the table", i, col)
			}
			coerced, err := coerceValue(value, declared)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i, col, err)
			}
			out[col] = coerced
		}
		validated = append(validated, out)
	}
	return validated, nil
}

func coerceValue(value any, declared string) (any, error) {
	if value == nil {
		return nil, nil
	}

	upper := strings.ToUpper(declared)
	switch {
	case strings.Contains(upper, "INT"):
		switch v := value.(type) {
		case float64:
			return int64(v), nil
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid integer value %q", v)
			}
			return parsed, nil
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return nil, fmt.Errorf("invalid integer value %v", value)
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		switch v := value.(type) {
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("non-finite numeric value")
			}
			return v, nil
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid numeric value %q", v)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("invalid numeric value %v", value)
	}

	switch v := value.(type) {
	case string:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// insertRows writes the validated rows in one transaction.
func (s *Service) insertRows(ctx context.Context, table sqlsafe.Identifier, tableSchema schema.Table, rows []map[string]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	columnIDs := make([]sqlsafe.Identifier, 0, len(tableSchema.ColumnOrder))
	for _, col := range tableSchema.ColumnOrder {
		id, err := sqlsafe.ValidateIdentifier(col, sqlsafe.IdentifierColumn)
		if err != nil {
			return 0, err
		}
		columnIDs = append(columnIDs, id)
	}

	quoted := make([]string, len(columnIDs))
	placeholders := make([]string, len(columnIDs))
	for i, id := range columnIDs {
		quoted[i] = id.Quoted()
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		table.Quoted(), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, sqlsafe.NewError(sqlsafe.KindStoreUnavailable, "the store cannot start a transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(columnIDs))
		for i, id := range columnIDs {
			args[i] = row[id.String()]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert generated row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, sqlsafe.NewError(sqlsafe.KindStoreUnavailable, "the store cannot commit", err)
	}
	return len(rows), nil
}
