package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_FreshInstallMarksAllMigrations(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "nested", "dispo.db"))
	require.NoError(t, err)
	defer database.Close()

	var version int
	require.NoError(t, database.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version))
	assert.Equal(t, len(migrations), version)

	// Reopening runs no migration and keeps the schema.
	require.NoError(t, InitSchema(database))
}

func TestRunMigrations_FromEmptyDatabase(t *testing.T) {
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	defer database.Close()

	require.NoError(t, RunMigrations(database))

	var count int
	require.NoError(t, database.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_dispositions_single_root'",
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSchema_SingleRootPerLetter(t *testing.T) {
	database, err := Open(":memory:")
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, SeedFixtures(database))

	_, err = database.Exec(
		"INSERT INTO dispositions (id, letter_id, creator_id, created_at) VALUES ('DSP-X', 'LTR-001', 'USR-SEC2', '2024-05-03T00:00:00Z')",
	)
	assert.Error(t, err)

	// One disposition per officer per letter
	_, err = database.Exec(
		"INSERT INTO dispositions (id, letter_id, parent_id, creator_id, created_at) VALUES ('DSP-Y', 'LTR-001', 'DSP-001', 'USR-SEC1', '2024-05-03T00:00:00Z')",
	)
	assert.Error(t, err)
}

func TestSeedFixtures(t *testing.T) {
	database, err := Open(":memory:")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, SeedFixtures(database))

	var users, tags int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM users").Scan(&users))
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM content_tags").Scan(&tags))
	assert.Equal(t, 7, users)

	phrases, err := DefaultContentTags()
	require.NoError(t, err)
	assert.Equal(t, len(phrases), tags)
	assert.Contains(t, phrases, "Please follow up")

	// Seeding the catalogue twice is harmless.
	require.NoError(t, SeedContentTags(database))
}
