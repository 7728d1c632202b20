package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (x INTEGER)`)
	assert.NoError(t, err)
}

func TestOpen_PersistsAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t VALUES (42)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var x int
	require.NoError(t, db.QueryRow(`SELECT x FROM t`).Scan(&x))
	assert.Equal(t, 42, x)
}

func TestWithDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	err := WithDB(path, func(db *sql.DB) error {
		_, err := db.Exec(`CREATE TABLE t (x INTEGER)`)
		return err
	})
	require.NoError(t, err)

	sentinel := errors.New("inner failure")
	err = WithDB(path, func(db *sql.DB) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}
