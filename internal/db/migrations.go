package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_letters_dispositions_participants",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_content_tag_catalogue",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "enforce_single_root_disposition",
		Up:      migrationV3,
	},
}

func createVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// RunMigrations executes all pending migrations
func RunMigrations(database *sql.DB) error {
	if err := createVersionTable(database); err != nil {
		return err
	}

	// Get current schema version
	var currentVersion int
	err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Run pending migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("running migration", "version", migration.Version, "name", migration.Name)

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the core routing tables
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('clerk', 'officer', 'operative', 'administrator', 'external')),
			supervisor_id TEXT,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS letters (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL,
			classification TEXT NOT NULL CHECK(classification IN ('ordinary', 'urgent', 'confidential')),
			subject TEXT NOT NULL,
			sender TEXT NOT NULL,
			creator_id TEXT NOT NULL,
			addressee_id TEXT NOT NULL,
			file_ref TEXT,
			letter_date TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_letters_addressee ON letters(addressee_id);
		CREATE TABLE IF NOT EXISTS dispositions (
			id TEXT PRIMARY KEY,
			letter_id TEXT NOT NULL,
			parent_id TEXT,
			creator_id TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			signature_ref TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY (letter_id) REFERENCES letters(id) ON DELETE CASCADE,
			FOREIGN KEY (parent_id) REFERENCES dispositions(id) ON DELETE CASCADE,
			UNIQUE(letter_id, creator_id)
		);
		CREATE TABLE IF NOT EXISTS disposition_tags (
			disposition_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			phrase TEXT NOT NULL,
			PRIMARY KEY (disposition_id, position),
			FOREIGN KEY (disposition_id) REFERENCES dispositions(id) ON DELETE CASCADE
		);
		CREATE TABLE IF NOT EXISTS disposition_recipients (
			id TEXT PRIMARY KEY,
			disposition_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (disposition_id) REFERENCES dispositions(id) ON DELETE CASCADE,
			UNIQUE(disposition_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_disposition_recipients_user ON disposition_recipients(user_id);
		CREATE TABLE IF NOT EXISTS participants (
			id TEXT PRIMARY KEY,
			letter_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			read_at TEXT,
			executed_at TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY (letter_id) REFERENCES letters(id) ON DELETE CASCADE,
			UNIQUE(letter_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_participants_user ON participants(user_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create routing tables: %w", err)
	}
	return nil
}

// migrationV2 adds the content tag catalogue
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS content_tags (
			id TEXT PRIMARY KEY,
			phrase TEXT NOT NULL UNIQUE,
			sort_order INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create content_tags table: %w", err)
	}
	return nil
}

// migrationV3 forbids a second root disposition per letter
func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_dispositions_single_root ON dispositions(letter_id) WHERE parent_id IS NULL`)
	if err != nil {
		return fmt.Errorf("failed to create single root index: %w", err)
	}
	return nil
}
