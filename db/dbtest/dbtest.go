// Package dbtest provides an in-memory database for package tests.
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"yatube/db"
	"yatube/pkg/db/sqlite"
)

// New opens an isolated in-memory database, applies the migrations and
// installs it as db.Instance for the duration of the test. The previous
// handle is restored on cleanup.
func New(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A second pool connection would see an empty in-memory database.
	conn.SetMaxOpenConns(1)

	require.NoError(t, sqlite.Migrate(conn))

	prev := db.Instance
	db.Instance = conn
	t.Cleanup(func() {
		db.Instance = prev
		conn.Close()
	})
	return conn
}

// SeedUser inserts a user row directly and returns its id. The password
// column is filled with a placeholder; use the register handler when the
// test needs a real credential.
func SeedUser(t *testing.T, username string) int {
	t.Helper()

	res, err := db.Instance.Exec(
		`INSERT INTO users (username, email, password) VALUES (?, ?, ?)`,
		username, username+"@example.com", "x")
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	return int(id)
}
