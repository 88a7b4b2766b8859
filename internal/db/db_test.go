package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/planbak/internal/db"
)

func openTemp(t *testing.T) (*db.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "planbak.db")
	database, err := db.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, dbPath
}

func TestOpen_AppliesPragmas(t *testing.T) {
	database, dbPath := openTemp(t)
	assert.Equal(t, dbPath, database.Path())

	var mode string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var timeout int
	require.NoError(t, database.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestMigrate(t *testing.T) {
	database, _ := openTemp(t)

	status, err := database.Status()
	require.NoError(t, err)
	assert.Zero(t, status.Version)
	assert.Equal(t, uint(1), status.Latest)
	assert.Equal(t, uint(1), status.Pending())

	applied, err := database.Migrate()
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = database.Migrate()
	require.NoError(t, err)
	assert.False(t, applied, "second run has nothing to do")

	status, err = database.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	assert.False(t, status.Dirty)
	assert.Zero(t, status.Pending())

	for _, table := range []string{"projects", "goals", "checklist_items", "project_attachment_cross_refs"} {
		var n int
		require.NoError(t, database.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}

func TestRequiresMigrationError(t *testing.T) {
	database, dbPath := openTemp(t)

	migErr := database.RequiresMigrationError()
	require.Error(t, migErr)

	errStr := migErr.Error()
	assert.Contains(t, errStr, dbPath)
	assert.Contains(t, errStr, "version: 0")
	assert.Contains(t, errStr, "1 pending migration")
	assert.Contains(t, errStr, "planbak migrate")

	_, err := database.Migrate()
	require.NoError(t, err)
	assert.NoError(t, database.RequiresMigrationError())
}

func TestForeignKeysEnforced(t *testing.T) {
	database, _ := openTemp(t)
	_, err := database.Migrate()
	require.NoError(t, err)

	_, err = database.Exec(`INSERT INTO checklist_items (id, checklist_id, content) VALUES ('i', 'missing', 'x')`)
	assert.Error(t, err)

	_, err = database.Exec(`INSERT INTO checklists (id, project_id, name) VALUES ('cl', 'p', 'x')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO checklist_items (id, checklist_id, content) VALUES ('i', 'cl', 'x')`)
	require.NoError(t, err)

	_, err = database.Exec(`DELETE FROM checklists WHERE id = 'cl'`)
	require.NoError(t, err)
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM checklist_items`).Scan(&n))
	assert.Zero(t, n, "items cascade with their checklist")
}
