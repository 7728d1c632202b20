package sqlsafe

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUsers(t *testing.T, db *sql.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE users (id INTEGER, name TEXT, age INTEGER)`,
		`INSERT INTO users VALUES (1, 'alice', 30), (2, 'bob', 25), (3, 'carol', 35)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestExecute_Select(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)

	result, err := exec.ExecuteQuerySafely(context.Background(),
		"SELECT name FROM {table} WHERE age > {{min_age}} ORDER BY name",
		map[string]Identifier{"table": mustIdentifier(t, "users", IdentifierTable)},
		map[string]any{"min_age": 26},
		false)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Columns) != 1 || result.Columns[0] != "name" {
		t.Errorf("unexpected columns: %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[0][0] != "alice" || result.Rows[1][0] != "carol" {
		t.Errorf("unexpected rows: %v", result.Rows)
	}
}

func TestExecute_EmptyResultKeepsColumns(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)

	result, err := exec.ExecuteQuerySafely(context.Background(),
		"SELECT id, name FROM {table} WHERE age > {{min_age}}",
		map[string]Identifier{"table": mustIdentifier(t, "users", IdentifierTable)},
		map[string]any{"min_age": 100},
		false)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("expected no rows, got %v", result.Rows)
	}
	if len(result.Columns) != 2 {
		t.Errorf("expected column metadata on empty result, got %v", result.Columns)
	}
}

func TestExecute_DDLGate(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)
	ids := map[string]Identifier{"table": mustIdentifier(t, "users", IdentifierTable)}

	_, err := exec.ExecuteQuerySafely(context.Background(), "DROP TABLE {table}", ids, nil, false)
	if !IsKind(err, KindDDLNotPermitted) {
		t.Fatalf("expected %s without opt-in, got %v", KindDDLNotPermitted, err)
	}

	// The gate refused before touching the store.
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		t.Fatalf("table should still exist: %v", err)
	}

	if _, err := exec.ExecuteQuerySafely(context.Background(), "DROP TABLE {table}", ids, nil, true); err != nil {
		t.Fatalf("expected drop with opt-in to succeed: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err == nil {
		t.Error("table should be gone after permitted drop")
	}
}

func TestExecute_WritesRejectedRegardlessOfDDLOptIn(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)
	ids := map[string]Identifier{"table": mustIdentifier(t, "users", IdentifierTable)}

	writes := []string{
		"INSERT INTO {table} VALUES (9, 'mallory', 99)",
		"UPDATE {table} SET name = 'x'",
		"DELETE FROM {table}",
	}
	for _, tmpl := range writes {
		for _, allowDDL := range []bool{false, true} {
			if _, err := exec.ExecuteQuerySafely(context.Background(), tmpl, ids, nil, allowDDL); !IsKind(err, KindRejectedStatement) {
				t.Errorf("template %q allowDDL=%v: expected %s, got %v", tmpl, allowDDL, KindRejectedStatement, err)
			}
		}
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil || n != 3 {
		t.Errorf("data should be untouched, count=%d err=%v", n, err)
	}
}

func TestExecute_MultiStatementRejected(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)

	rendered := &RenderedStatement{SQL: "SELECT * FROM users; DROP TABLE users"}
	_, err := exec.Execute(context.Background(), rendered, ExecOptions{AllowDDL: true})
	if !IsKind(err, KindRejectedStatement) {
		t.Fatalf("expected %s, got %v", KindRejectedStatement, err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil || n != 3 {
		t.Errorf("data should be untouched, count=%d err=%v", n, err)
	}
}

func TestExecute_StoreErrorClassification(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)

	tests := []struct {
		name string
		sql  string
		kind Kind
	}{
		{name: "missing table", sql: "SELECT * FROM no_such_table", kind: KindNotFound},
		{name: "missing column", sql: "SELECT missing_col FROM users", kind: KindNotFound},
		{name: "syntax error", sql: "SELECT FROM WHERE", kind: KindSyntax},
		{name: "unknown function", sql: "SELECT not_a_function(id) FROM users", kind: KindSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.Execute(context.Background(), &RenderedStatement{SQL: tt.sql}, ExecOptions{})
			if !IsKind(err, tt.kind) {
				t.Errorf("expected kind %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestExecute_DropThenQueryIsNotFound(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)
	ids := map[string]Identifier{"table": mustIdentifier(t, "users", IdentifierTable)}

	if _, err := exec.ExecuteQuerySafely(context.Background(), "DROP TABLE IF EXISTS {table}", ids, nil, true); err != nil {
		t.Fatal(err)
	}
	_, err := exec.ExecuteQuerySafely(context.Background(), "SELECT * FROM {table}", ids, nil, false)
	if !IsKind(err, KindNotFound) {
		t.Errorf("expected %s after drop, got %v", KindNotFound, err)
	}
}

func TestExecute_InjectionArgRejected(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, 5*time.Second, nil)

	_, err := exec.ExecuteQuerySafely(context.Background(),
		"SELECT * FROM {table} WHERE name = {{name}}",
		map[string]Identifier{"table": mustIdentifier(t, "users", IdentifierTable)},
		map[string]any{"name": "' OR '1'='1"},
		false)
	if !IsKind(err, KindRejectedStatement) {
		t.Errorf("expected %s for injection payload, got %v", KindRejectedStatement, err)
	}
}

func TestExecute_Timeout(t *testing.T) {
	db := testDB(t)
	seedUsers(t, db)
	exec := NewExecutor(db, time.Nanosecond, nil)

	_, err := exec.Execute(context.Background(),
		&RenderedStatement{SQL: "SELECT * FROM users"}, ExecOptions{})
	if err == nil {
		t.Skip("query finished inside a nanosecond")
	}
	if !IsKind(err, KindTimeout) {
		t.Errorf("expected %s, got %v", KindTimeout, err)
	}
}
