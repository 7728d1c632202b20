// Package schema reads the store catalog. Snapshots are rebuilt on every
// request rather than cached; staleness after an upload or delete is worse
// than the redundant catalog read.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabletalk-ai/tabletalk/pkg/sqlsafe"
)

// Table describes one table in a snapshot. Columns maps column name to its
// declared type; RowCount is an exact COUNT(*) at snapshot time.
type Table struct {
	Columns     map[string]string
	ColumnOrder []string
	RowCount    int64
}

// Snapshot is a point-in-time view of the store's tables.
type Snapshot struct {
	Tables map[string]Table
}

// TakeSnapshot reads the full catalog in one pass: table list from
// sqlite_master, per-table columns from PRAGMA table_info, and exact row
// counts.
func TakeSnapshot(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{Tables: make(map[string]Table, len(names))}
	for _, name := range names {
		// Catalog names are store-controlled but validate anyway before
		// they re-enter SQL text in identifier position.
		id, err := sqlsafe.ValidateIdentifier(name, sqlsafe.IdentifierTable)
		if err != nil {
			return nil, err
		}

		table, err := describeTable(ctx, db, id)
		if err != nil {
			return nil, err
		}
		snapshot.Tables[name] = table
	}

	return snapshot, nil
}

// TableExists is a lightweight existence check used as a precondition gate
// before destructive or export operations. It does not build a snapshot.
func TableExists(ctx context.Context, db *sql.DB, name sqlsafe.Identifier) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		name.String()).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeError(err)
	}
	return true, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeError(err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func describeTable(ctx context.Context, db *sql.DB, id sqlsafe.Identifier) (Table, error) {
	table := Table{Columns: make(map[string]string)}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, id.Quoted()))
	if err != nil {
		return table, storeError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			typ        string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return table, storeError(err)
		}
		table.Columns[name] = typ
		table.ColumnOrder = append(table.ColumnOrder, name)
	}
	if err := rows.Err(); err != nil {
		return table, storeError(err)
	}

	err = db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, id.Quoted())).Scan(&table.RowCount)
	if err != nil {
		return table, storeError(err)
	}

	return table, nil
}

func storeError(err error) error {
	return sqlsafe.NewError(sqlsafe.KindStoreUnavailable,
		"the store catalog cannot be read", err)
}
