package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

func testExporter(t *testing.T) (*Exporter, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return NewExporter(sqlsafe.NewExecutor(db, 5*time.Second, nil)), db
}

func seed(t *testing.T, db *sql.DB) sqlsafe.Identifier {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE pets (id INTEGER, name TEXT, weight REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO pets VALUES (1, 'rex', 12.5), (2, 'whiskers', NULL)`)
	require.NoError(t, err)
	id, err := sqlsafe.ValidateIdentifier("pets", sqlsafe.IdentifierTable)
	require.NoError(t, err)
	return id
}

func TestCSVFromTable(t *testing.T) {
	exporter, db := testExporter(t)
	table := seed(t, db)

	payload, err := exporter.CSVFromTable(context.Background(), table)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,weight", lines[0])
	assert.Equal(t, "1,rex,12.5", lines[1])
	assert.Equal(t, "2,whiskers,", lines[2])
}

func TestJSONFromTable(t *testing.T) {
	exporter, db := testExporter(t)
	table := seed(t, db)

	payload, err := exporter.JSONFromTable(context.Background(), table)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(payload, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "rex", rows[0]["name"])
	assert.Nil(t, rows[1]["weight"])
}

func TestExport_MissingTable(t *testing.T) {
	exporter, _ := testExporter(t)
	table, err := sqlsafe.ValidateIdentifier("ghost", sqlsafe.IdentifierTable)
	require.NoError(t, err)

	_, err = exporter.CSVFromTable(context.Background(), table)
	assert.True(t, sqlsafe.IsKind(err, sqlsafe.KindNotFound), "got %v", err)
}

func TestCSVFromRows(t *testing.T) {
	rows := []map[string]any{
		{"a": int64(1), "b": "x"},
		{"a": int64(2), "b": "y,z"},
	}
	payload, err := CSVFromRows(rows, []string{"a", "b"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a,b", lines[0])
	assert.Equal(t, "1,x", lines[1])
	assert.Equal(t, `2,"y,z"`, lines[2])
}

func TestJSONFromRows_FiltersToColumns(t *testing.T) {
	rows := []map[string]any{{"keep": 1, "drop": 2}}
	payload, err := JSONFromRows(rows, []string{"keep"})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded, 1)
	assert.Contains(t, decoded[0], "keep")
	assert.NotContains(t, decoded[0], "drop")
}

func TestJSONFromRows_Empty(t *testing.T) {
	payload, err := JSONFromRows(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))
}
