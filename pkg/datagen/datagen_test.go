package datagen

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tabletalk-ai/tabletalk/pkg/llm"
	"github.com/tabletalk-ai/tabletalk/pkg/schema"
	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

func testService(t *testing.T, gen llm.Generator) (*Service, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	exec := sqlsafe.NewExecutor(db, 5*time.Second, nil)
	return NewService(db, exec, gen, nil), db
}

func seedProducts(t *testing.T, db *sql.DB) sqlsafe.Identifier {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE products (name TEXT, price REAL, stock INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products VALUES ('widget', 9.99, 5), ('gadget', 24.5, 2)`)
	require.NoError(t, err)
	id, err := sqlsafe.ValidateIdentifier("products", sqlsafe.IdentifierTable)
	require.NoError(t, err)
	return id
}

func TestGenerate(t *testing.T) {
	var sampledRows int
	gen := &llm.MockGenerator{
		GenerateRowsFunc: func(_ context.Context, table string, tableSchema schema.Table, sample []map[string]any, count int) ([]map[string]any, error) {
			sampledRows = len(sample)
			assert.Equal(t, "products", table)
			assert.Equal(t, GeneratedRowCount, count)
			return []map[string]any{
				{"name": "doohickey", "price": 3.5, "stock": float64(7)},
				{"name": "thingamajig", "price": "12.25", "stock": "3"},
			}, nil
		},
	}
	service, db := testService(t, gen)
	table := seedProducts(t, db)

	result, err := service.Generate(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsGenerated)
	assert.Equal(t, 2, sampledRows)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&n))
	assert.Equal(t, 4, n)

	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE name = 'thingamajig'`).Scan(&stock))
	assert.Equal(t, 3, stock)
}

func TestGenerate_MissingTable(t *testing.T) {
	service, _ := testService(t, &llm.MockGenerator{})
	table, err := sqlsafe.ValidateIdentifier("ghost", sqlsafe.IdentifierTable)
	require.NoError(t, err)

	_, err = service.Generate(context.Background(), table)
	assert.True(t, sqlsafe.IsKind(err, sqlsafe.KindNotFound), "got %v", err)
}

func TestGenerate_EmptyTable(t *testing.T) {
	service, db := testService(t, &llm.MockGenerator{})
	_, err := db.Exec(`CREATE TABLE empty_products (name TEXT)`)
	require.NoError(t, err)
	table, err := sqlsafe.ValidateIdentifier("empty_products", sqlsafe.IdentifierTable)
	require.NoError(t, err)

	_, err = service.Generate(context.Background(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestGenerate_RejectsUnknownColumn(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateRowsFunc: func(context.Context, string, schema.Table, []map[string]any, int) ([]map[string]any, error) {
			return []map[string]any{{"name": "x", "invented_column": 1}}, nil
		},
	}
	service, db := testService(t, gen)
	table := seedProducts(t, db)

	_, err := service.Generate(context.Background(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invented_column")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&n))
	assert.Equal(t, 2, n, "rejected generation must not insert")
}

func TestGenerate_PropagatesModelError(t *testing.T) {
	modelErr := errors.New("provider down")
	gen := &llm.MockGenerator{
		GenerateRowsFunc: func(context.Context, string, schema.Table, []map[string]any, int) ([]map[string]any, error) {
			return nil, modelErr
		},
	}
	service, db := testService(t, gen)
	table := seedProducts(t, db)

	_, err := service.Generate(context.Background(), table)
	assert.ErrorIs(t, err, modelErr)
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		declared string
		expected any
		wantErr  bool
	}{
		{name: "float to integer", value: float64(7), declared: "INTEGER", expected: int64(7)},
		{name: "string to integer", value: "42", declared: "INTEGER", expected: int64(42)},
		{name: "bool to integer", value: true, declared: "INTEGER", expected: int64(1)},
		{name: "bad integer string", value: "abc", declared: "INTEGER", wantErr: true},
		{name: "float to real", value: 2.5, declared: "REAL", expected: 2.5},
		{name: "string to real", value: "2.5", declared: "REAL", expected: 2.5},
		{name: "nan rejected", value: nanValue(), declared: "REAL", wantErr: true},
		{name: "number to text", value: float64(9), declared: "TEXT", expected: "9"},
		{name: "nil stays nil", value: nil, declared: "INTEGER", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceValue(tt.value, tt.declared)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}
