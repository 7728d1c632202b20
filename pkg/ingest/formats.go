package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
)

type format int

const (
	formatCSV format = iota
	formatJSON
	formatJSONL
)

// tabular is the parsed, typed intermediate form shared by all formats.
type tabular struct {
	columns []string
	types   []string // declared SQLite types aligned to columns
	rows    [][]any  // bind values aligned to columns
}

// detectFormat maps a filename extension onto a format and returns the base
// name (without extension) the table will be named after.
func detectFormat(filename string) (format, string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return formatCSV, filename[:len(filename)-len(".csv")], nil
	case strings.HasSuffix(lower, ".jsonl"):
		return formatJSONL, filename[:len(filename)-len(".jsonl")], nil
	case strings.HasSuffix(lower, ".json"):
		return formatJSON, filename[:len(filename)-len(".json")], nil
	}
	return 0, "", fmt.Errorf("%w: %q (expected .csv, .json or .jsonl)", apperrors.ErrUnsupportedFileType, filename)
}

func parseCSV(r io.Reader) (*tabular, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, apperrors.ErrEmptyUpload
	}

	header := records[0]
	body := records[1:]
	types := inferColumnTypes(len(header), body)

	data := &tabular{columns: header}
	for _, t := range types {
		data.types = append(data.types, t.declared())
	}
	for _, record := range body {
		row := make([]any, len(header))
		for i := range header {
			if i < len(record) {
				row[i] = convertValue(record[i], types[i])
			}
		}
		data.rows = append(data.rows, row)
	}
	return data, nil
}

func parseJSON(r io.Reader) (*tabular, error) {
	var objects []map[string]any
	if err := json.NewDecoder(r).Decode(&objects); err != nil {
		return nil, fmt.Errorf("parse JSON: %w (expected an array of objects)", err)
	}
	return fromObjects(objects)
}

func parseJSONL(r io.Reader) (*tabular, error) {
	var objects []map[string]any

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return nil, fmt.Errorf("parse JSONL line %d: %w", line, err)
		}
		objects = append(objects, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read JSONL: %w", err)
	}
	return fromObjects(objects)
}

// fromObjects flattens decoded objects into the tabular form. Columns are
// the union of all keys, sorted for determinism (JSON objects carry no
// order).
func fromObjects(objects []map[string]any) (*tabular, error) {
	if len(objects) == 0 {
		return nil, apperrors.ErrEmptyUpload
	}

	seen := make(map[string]struct{})
	var columns []string
	for _, obj := range objects {
		for key := range obj {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	data := &tabular{columns: columns}
	for _, col := range columns {
		values := make([]any, 0, len(objects))
		for _, obj := range objects {
			values = append(values, obj[col])
		}
		data.types = append(data.types, inferJSONType(values))
	}

	for _, obj := range objects {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = convertJSONValue(obj[col], data.types[i])
		}
		data.rows = append(data.rows, row)
	}
	return data, nil
}

// inferJSONType picks a declared type from decoded JSON values: integral
// numbers and booleans map to INTEGER, other numbers to REAL, everything
// else to TEXT.
func inferJSONType(values []any) string {
	t := typeUnknown
	for _, v := range values {
		switch v := v.(type) {
		case nil:
			continue
		case bool:
			t = t.widen("1")
		case float64:
			if v == math.Trunc(v) {
				t = t.widen("1")
			} else {
				t = t.widen("1.5")
			}
		case string:
			// A string stays text even if it looks numeric; quoting it in
			// the payload was a choice.
			return typeText.declared()
		default:
			return typeText.declared()
		}
	}
	return t.declared()
}

// convertJSONValue turns a decoded JSON value into a bind value for its
// column type. Nested arrays and objects are re-encoded as JSON text.
func convertJSONValue(v any, declared string) any {
	switch v := v.(type) {
	case nil:
		return nil
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case float64:
		if declared == "INTEGER" && v == math.Trunc(v) {
			return int64(v)
		}
		return v
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
