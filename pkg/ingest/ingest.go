// Package ingest converts uploaded CSV, JSON and JSONL payloads into store
// tables. Table and column names arrive from the outside world (filenames,
// payload keys) and are treated as untrusted: every name is validated by the
// security layer before it appears in SQL text, and all row values are bound,
// never interpolated.
//
// Ingestion writes through its own transaction rather than the policy gate:
// the gate rejects INSERT unconditionally because no dynamic caller may
// write, while ingestion is a trusted code path with a fixed statement shape.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/tabletalk-ai/tabletalk/pkg/apperrors"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// SampleRowCount is how many rows of the ingested data are echoed back to
// the caller for preview.
const SampleRowCount = 5

// Result describes the table produced from one upload.
type Result struct {
	TableName   string
	Columns     map[string]string
	ColumnOrder []string
	RowCount    int64
	SampleRows  []map[string]any
}

// Ingester converts uploads into tables on a single store handle.
type Ingester struct {
	db       *sql.DB
	maxBytes int64
	logger   *zap.Logger
}

// NewIngester creates an ingester. maxBytes bounds the payload size after
// decompression.
func NewIngester(db *sql.DB, maxBytes int64, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{db: db, maxBytes: maxBytes, logger: logger.Named("ingest")}
}

// Ingest parses the payload according to the filename's extension and loads
// it into a table named after the file. An existing table of the same name
// is replaced.
func (ing *Ingester) Ingest(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	name := filename

	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
		name = name[:len(name)-len(".gz")]
	}

	r = &cappedReader{r: r, remaining: ing.maxBytes + 1}

	format, base, err := detectFormat(name)
	if err != nil {
		return nil, err
	}

	tableID, err := sqlsafe.ValidateIdentifier(normalizeName(base), sqlsafe.IdentifierTable)
	if err != nil {
		return nil, err
	}

	var data *tabular
	switch format {
	case formatCSV:
		data, err = parseCSV(r)
	case formatJSON:
		data, err = parseJSON(r)
	case formatJSONL:
		data, err = parseJSONL(r)
	}
	if err != nil {
		return nil, err
	}
	if len(data.columns) == 0 {
		return nil, apperrors.ErrEmptyUpload
	}

	columnIDs := make([]sqlsafe.Identifier, len(data.columns))
	for i, col := range data.columns {
		id, err := sqlsafe.ValidateIdentifier(normalizeName(col), sqlsafe.IdentifierColumn)
		if err != nil {
			return nil, err
		}
		columnIDs[i] = id
	}

	if err := ing.load(ctx, tableID, columnIDs, data); err != nil {
		return nil, err
	}

	result := &Result{
		TableName: tableID.String(),
		Columns:   make(map[string]string, len(columnIDs)),
		RowCount:  int64(len(data.rows)),
	}
	for i, id := range columnIDs {
		result.Columns[id.String()] = data.types[i]
		result.ColumnOrder = append(result.ColumnOrder, id.String())
	}
	for i, row := range data.rows {
		if i == SampleRowCount {
			break
		}
		sample := make(map[string]any, len(columnIDs))
		for j, id := range columnIDs {
			sample[id.String()] = row[j]
		}
		result.SampleRows = append(result.SampleRows, sample)
	}

	ing.logger.Info("file ingested",
		zap.String("table", result.TableName),
		zap.Int("columns", len(result.ColumnOrder)),
		zap.Int64("rows", result.RowCount))

	return result, nil
}

// load replaces the target table inside one transaction so a failed upload
// never leaves a half-written table behind.
func (ing *Ingester) load(ctx context.Context, table sqlsafe.Identifier, columns []sqlsafe.Identifier, data *tabular) error {
	tx, err := ing.db.BeginTx(ctx, nil)
	if err != nil {
		return sqlsafe.NewError(sqlsafe.KindStoreUnavailable, "the store cannot start a transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table.Quoted())); err != nil {
		return fmt.Errorf("replace table: %w", err)
	}

	defs := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", col.Quoted(), data.types[i])
		placeholders[i] = "?"
		quoted[i] = col.Quoted()
	}

	createSQL := fmt.Sprintf(`CREATE TABLE %s (%s)`, table.Quoted(), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		table.Quoted(), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range data.rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return sqlsafe.NewError(sqlsafe.KindStoreUnavailable, "the store cannot commit", err)
	}
	return nil
}

// cappedReader fails with ErrUploadTooLarge once the payload exceeds the
// configured limit. io.LimitReader is not enough here: it truncates silently,
// and a gzip stream cut at a record boundary still parses as a clean smaller
// file. remaining is initialized to limit+1 so an exact-size payload passes
// and the first byte past the limit trips the error.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		return 0, apperrors.ErrUploadTooLarge
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining <= 0 && err == nil {
		err = apperrors.ErrUploadTooLarge
	}
	return n, err
}

// normalizeName makes a filename- or payload-derived name a candidate
// identifier: trimmed, lowercased, spaces replaced with underscores. The
// result still has to pass full validation.
func normalizeName(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}
