// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"bookameal/internal/database"

	"github.com/stretchr/testify/require"
)

// Open returns a migrated database file under t.TempDir, closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// SeedUser inserts a user with the given role and returns its id. The email
// doubles as the username.
func SeedUser(t testing.TB, db *sql.DB, email, role string) int64 {
	t.Helper()

	now := time.Now().UTC()
	res, err := db.Exec(`
		INSERT INTO users (email, username, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, email, email, "x", role, now, now)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// SeedMeal inserts a meal owned by catererID and returns its id.
func SeedMeal(t testing.TB, db *sql.DB, catererID int64, name string, price float64) int64 {
	t.Helper()

	now := time.Now().UTC()
	res, err := db.Exec(`
		INSERT INTO meals (caterer_id, name, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, catererID, name, price, now, now)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// Count returns SELECT COUNT(*) FROM table [WHERE where].
func Count(t testing.TB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()

	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	require.NoError(t, db.QueryRow(q, args...).Scan(&n))
	return n
}
