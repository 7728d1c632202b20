package ingest

import (
	"strconv"
	"strings"
)

// Column affinity is inferred from the values actually present: a column
// whose non-empty values all parse as integers becomes INTEGER, all numeric
// becomes REAL, anything else TEXT. An all-empty column defaults to TEXT.

type columnType int

const (
	typeUnknown columnType = iota
	typeInteger
	typeReal
	typeText
)

func (t columnType) declared() string {
	switch t {
	case typeInteger:
		return "INTEGER"
	case typeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// widen moves a column's inferred type toward TEXT as values disagree.
func (t columnType) widen(value string) columnType {
	if value == "" {
		return t
	}

	observed := typeText
	if isIntegerLiteral(value) {
		observed = typeInteger
	} else if isRealLiteral(value) {
		observed = typeReal
	}

	if t == typeUnknown || observed == t {
		return observed
	}
	// INTEGER and REAL mix to REAL; anything else mixes to TEXT.
	if (t == typeInteger && observed == typeReal) || (t == typeReal && observed == typeInteger) {
		return typeReal
	}
	return typeText
}

func isIntegerLiteral(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

func isRealLiteral(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// inferColumnTypes scans string records column by column.
func inferColumnTypes(columnCount int, records [][]string) []columnType {
	types := make([]columnType, columnCount)
	for _, record := range records {
		for i := 0; i < columnCount && i < len(record); i++ {
			types[i] = types[i].widen(record[i])
		}
	}
	return types
}

// convertValue turns a raw string cell into a typed bind value. Empty cells
// become NULL for numeric columns and stay empty strings for TEXT.
func convertValue(raw string, t columnType) any {
	switch t {
	case typeInteger:
		if raw == "" {
			return nil
		}
		if v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			return v
		}
		return raw
	case typeReal:
		if raw == "" {
			return nil
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return v
		}
		return raw
	default:
		return raw
	}
}
