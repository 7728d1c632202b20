package sqlsafe

import (
	"testing"
)

func TestClassify_Read(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "simple select", input: "SELECT 1"},
		{name: "lowercase select", input: "select * from users"},
		{name: "select with trailing semicolon", input: "SELECT * FROM users;"},
		{name: "with clause", input: "WITH t AS (SELECT 1) SELECT * FROM t"},
		{name: "semicolon in string literal", input: "SELECT * FROM users WHERE name = 'a;b'"},
		{name: "escaped quote in string", input: "SELECT * FROM users WHERE name = 'O''Brien; x'"},
		{name: "select with parenthesis boundary", input: "SELECT(1)"},
		{name: "write verb in string literal", input: "WITH t AS (SELECT 'DELETE FROM users') SELECT * FROM t"},
		{name: "write verb as quoted identifier", input: `SELECT "update" FROM audit_log`},
		{name: "leading whitespace", input: "   \n\tSELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, err := Classify(tt.input)
			if err != nil {
				t.Fatalf("expected read classification, got error: %v", err)
			}
			if class != ClassRead {
				t.Errorf("expected ClassRead, got %s", class)
			}
		})
	}
}

func TestClassify_DDL(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "drop table", input: "DROP TABLE users"},
		{name: "drop table if exists", input: `DROP TABLE IF EXISTS "users"`},
		{name: "create table", input: "CREATE TABLE t (id INTEGER)"},
		{name: "alter table", input: "ALTER TABLE users ADD COLUMN age INTEGER"},
		{name: "lowercase ddl", input: "drop table users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, err := Classify(tt.input)
			if err != nil {
				t.Fatalf("expected DDL classification, got error: %v", err)
			}
			if class != ClassDDL {
				t.Errorf("expected ClassDDL, got %s", class)
			}
		})
	}
}

func TestClassify_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "insert", input: "INSERT INTO users VALUES (1)"},
		{name: "update", input: "UPDATE users SET name = 'x'"},
		{name: "delete", input: "DELETE FROM users"},
		{name: "pragma", input: "PRAGMA table_info(users)"},
		{name: "attach", input: "ATTACH DATABASE 'other.db' AS other"},
		{name: "drop index", input: "DROP INDEX idx_users"},
		{name: "drop view", input: "DROP VIEW v"},
		{name: "create index", input: "CREATE INDEX idx ON users(name)"},
		{name: "vacuum", input: "VACUUM"},
		{name: "multi statement", input: "SELECT 1; DROP TABLE users"},
		{name: "multi statement both reads", input: "SELECT 1; SELECT 2"},
		{name: "empty", input: ""},
		{name: "whitespace only", input: "   \n  "},
		{name: "lone semicolon", input: ";"},
		{name: "selection prefix without boundary", input: "SELECTION FROM users"},
		{name: "natural language", input: "show me all the users"},
		{name: "cte delete", input: "WITH t AS (SELECT 1) DELETE FROM users"},
		{name: "cte insert", input: "WITH t AS (SELECT 1) INSERT INTO users SELECT * FROM t"},
		{name: "cte update", input: "with t as (select 1) update users set name = 'x'"},
		{name: "backslash before closing quote", input: `SELECT '\'; DELETE FROM users`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.input)
			if err == nil {
				t.Fatalf("expected %q to be rejected", tt.input)
			}
			if !IsKind(err, KindRejectedStatement) {
				t.Errorf("expected kind %s, got %s", KindRejectedStatement, KindOf(err))
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "strips trailing semicolon", input: "SELECT 1;", expected: "SELECT 1"},
		{name: "strips whitespace", input: "  SELECT 1  ", expected: "SELECT 1"},
		{name: "semicolon then whitespace", input: "SELECT 1 ;  ", expected: "SELECT 1"},
		{name: "semicolon in single quotes kept", input: "SELECT ';'", expected: "SELECT ';'"},
		{name: "semicolon in double quotes kept", input: `SELECT * FROM "a;b"`, expected: `SELECT * FROM "a;b"`},
		{name: "interior semicolon rejected", input: "SELECT 1; SELECT 2", wantErr: true},
		{name: "piggybacked ddl rejected", input: "SELECT * FROM users; DROP TABLE users;", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected %q to be rejected", tt.input)
				}
				if !IsKind(err, KindRejectedStatement) {
					t.Errorf("expected kind %s, got %s", KindRejectedStatement, KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStatementClass_String(t *testing.T) {
	if ClassRead.String() != "READ" {
		t.Errorf("got %s", ClassRead)
	}
	if ClassDDL.String() != "DDL" {
		t.Errorf("got %s", ClassDDL)
	}
}
