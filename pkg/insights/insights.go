// Package insights computes per-column statistics for a table. All reads go
// through the safe execution layer as plain read statements; this package
// produces no policy of its own.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/tabletalk-ai/tabletalk/pkg/schema"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// TopValueLimit is how many most-frequent values are reported for a text
// column.
const TopValueLimit = 5

// ValueCount is one entry of a text column's frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ColumnInsight holds the statistics for one column. Min/Max/Avg are set for
// numeric columns, TopValues for text columns.
type ColumnInsight struct {
	Column        string       `json:"column"`
	DeclaredType  string       `json:"declared_type"`
	NonNullCount  int64        `json:"non_null_count"`
	DistinctCount int64        `json:"distinct_count"`
	Min           *float64     `json:"min,omitempty"`
	Max           *float64     `json:"max,omitempty"`
	Avg           *float64     `json:"avg,omitempty"`
	TopValues     []ValueCount `json:"top_values,omitempty"`
}

// Service computes insights through a safe executor.
type Service struct {
	exec *sqlsafe.Executor
}

// NewService creates an insights service.
func NewService(exec *sqlsafe.Executor) *Service {
	return &Service{exec: exec}
}

// Generate computes statistics for the requested columns of a table. When
// columns is empty, all columns of the table are analyzed. Column names are
// untrusted and validated here; a name the table does not have fails with
// the not-found kind before any statement is built.
func (s *Service) Generate(ctx context.Context, table sqlsafe.Identifier, tableSchema schema.Table, columns []string) ([]ColumnInsight, error) {
	if len(columns) == 0 {
		columns = tableSchema.ColumnOrder
	}

	results := make([]ColumnInsight, 0, len(columns))
	for _, raw := range columns {
		col, err := sqlsafe.ValidateIdentifier(raw, sqlsafe.IdentifierColumn)
		if err != nil {
			return nil, err
		}
		declared, ok := tableSchema.Columns[col.String()]
		if !ok {
			return nil, sqlsafe.NewError(sqlsafe.KindNotFound,
				fmt.Sprintf("table has no column %q", col.String()), nil)
		}

		insight, err := s.analyzeColumn(ctx, table, col, declared)
		if err != nil {
			return nil, err
		}
		results = append(results, insight)
	}
	return results, nil
}

func (s *Service) analyzeColumn(ctx context.Context, table, col sqlsafe.Identifier, declared string) (ColumnInsight, error) {
	insight := ColumnInsight{Column: col.String(), DeclaredType: declared}
	ids := map[string]sqlsafe.Identifier{"table": table, "col": col}

	if isNumericType(declared) {
		result, err := s.exec.ExecuteQuerySafely(ctx,
			`SELECT COUNT({col}), COUNT(DISTINCT {col}), MIN({col}), MAX({col}), AVG({col}) FROM {table}`,
			ids, nil, false)
		if err != nil {
			return insight, err
		}
		if len(result.Rows) == 1 {
			row := result.Rows[0]
			insight.NonNullCount = toInt(row[0])
			insight.DistinctCount = toInt(row[1])
			insight.Min = toFloat(row[2])
			insight.Max = toFloat(row[3])
			insight.Avg = toFloat(row[4])
		}
		return insight, nil
	}

	result, err := s.exec.ExecuteQuerySafely(ctx,
		`SELECT COUNT({col}), COUNT(DISTINCT {col}) FROM {table}`,
		ids, nil, false)
	if err != nil {
		return insight, err
	}
	if len(result.Rows) == 1 {
		insight.NonNullCount = toInt(result.Rows[0][0])
		insight.DistinctCount = toInt(result.Rows[0][1])
	}

	top, err := s.exec.ExecuteQuerySafely(ctx,
		`SELECT {col}, COUNT(*) FROM {table} WHERE {col} IS NOT NULL GROUP BY {col} ORDER BY COUNT(*) DESC, {col} LIMIT {{limit}}`,
		ids, map[string]any{"limit": TopValueLimit}, false)
	if err != nil {
		return insight, err
	}
	for _, row := range top.Rows {
		insight.TopValues = append(insight.TopValues, ValueCount{
			Value: fmt.Sprintf("%v", row[0]),
			Count: toInt(row[1]),
		})
	}
	return insight, nil
}

func isNumericType(declared string) bool {
	upper := strings.ToUpper(declared)
	return strings.Contains(upper, "INT") ||
		strings.Contains(upper, "REAL") ||
		strings.Contains(upper, "FLOA") ||
		strings.Contains(upper, "DOUB") ||
		strings.Contains(upper, "NUMERIC") ||
		strings.Contains(upper, "DECIMAL")
}

func toInt(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toFloat(v any) *float64 {
	switch v := v.(type) {
	case int64:
		f := float64(v)
		return &f
	case float64:
		return &v
	default:
		return nil
	}
}
