// Package export renders tables and query results as downloadable CSV or
// JSON. Table exports read through the safe execution layer; the caller is
// expected to have existence-checked the table first.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// Exporter reads tables through a safe executor.
type Exporter struct {
	exec *sqlsafe.Executor
}

// NewExporter creates an exporter over the given executor.
func NewExporter(exec *sqlsafe.Executor) *Exporter {
	return &Exporter{exec: exec}
}

// CSVFromTable exports a full table as CSV.
func (e *Exporter) CSVFromTable(ctx context.Context, table sqlsafe.Identifier) ([]byte, error) {
	result, err := e.readTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return CSVFromResult(result.Columns, result.Rows)
}

// JSONFromTable exports a full table as a JSON array of objects.
func (e *Exporter) JSONFromTable(ctx context.Context, table sqlsafe.Identifier) ([]byte, error) {
	result, err := e.readTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return JSONFromResult(result.Columns, result.Rows)
}

func (e *Exporter) readTable(ctx context.Context, table sqlsafe.Identifier) (*sqlsafe.Result, error) {
	return e.exec.ExecuteQuerySafely(ctx, `SELECT * FROM {table}`,
		map[string]sqlsafe.Identifier{"table": table}, nil, false)
}

// CSVFromResult renders a materialized result as CSV with a header row.
func CSVFromResult(columns []string, rows [][]any) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if len(columns) == 0 && len(rows) == 0 {
		return nil, nil
	}

	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				record[i] = formatCSVValue(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// JSONFromResult renders a materialized result as an indented JSON array of
// objects. BLOB values are base64 encoded.
func JSONFromResult(columns []string, rows [][]any) ([]byte, error) {
	objects := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(columns))
		for i, col := range columns {
			var value any
			if i < len(row) {
				value = row[i]
			}
			if blob, ok := value.([]byte); ok {
				value = base64.StdEncoding.EncodeToString(blob)
			}
			obj[col] = value
		}
		objects = append(objects, obj)
	}

	encoded, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode JSON export: %w", err)
	}
	return encoded, nil
}

// JSONFromRows renders caller-supplied row maps (a query result echoed back
// by the client) restricted to the given columns.
func JSONFromRows(rows []map[string]any, columns []string) ([]byte, error) {
	if len(rows) == 0 && len(columns) == 0 {
		return []byte("[]"), nil
	}
	if len(columns) == 0 {
		for col := range rows[0] {
			columns = append(columns, col)
		}
	}

	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(columns))
		for _, col := range columns {
			value := row[col]
			if blob, ok := value.([]byte); ok {
				value = base64.StdEncoding.EncodeToString(blob)
			}
			obj[col] = value
		}
		filtered = append(filtered, obj)
	}
	encoded, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode JSON export: %w", err)
	}
	return encoded, nil
}

// CSVFromRows renders caller-supplied row maps as CSV restricted to the
// given columns.
func CSVFromRows(rows []map[string]any, columns []string) ([]byte, error) {
	if len(rows) == 0 && len(columns) == 0 {
		return nil, nil
	}
	if len(columns) == 0 {
		for col := range rows[0] {
			columns = append(columns, col)
		}
	}

	tuples := make([][]any, 0, len(rows))
	for _, row := range rows {
		tuple := make([]any, len(columns))
		for i, col := range columns {
			tuple[i] = row[col]
		}
		tuples = append(tuples, tuple)
	}
	return CSVFromResult(columns, tuples)
}

func formatCSVValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
