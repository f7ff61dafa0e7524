package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete modern schema for fresh dispo installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(). If repository code references a column
// that doesn't exist here, tests fail immediately with "no such column".
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//
// Timestamps are RFC 3339 TEXT written by the application, never defaulted
// by SQLite, so that snapshots round-trip exactly.
const SchemaSQL = `
-- Users (directory of people who take part in routing)
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('clerk', 'officer', 'operative', 'administrator', 'external')),
	supervisor_id TEXT,
	created_at TEXT NOT NULL
);

-- Letters (incoming correspondence)
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

-- Dispositions (nodes of the forwarding tree; level is derived, never stored)
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

CREATE UNIQUE INDEX IF NOT EXISTS idx_dispositions_single_root ON dispositions(letter_id) WHERE parent_id IS NULL;

-- Disposition content tags (ordered instruction phrases)
CREATE TABLE IF NOT EXISTS disposition_tags (
	disposition_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	phrase TEXT NOT NULL,
	PRIMARY KEY (disposition_id, position),
	FOREIGN KEY (disposition_id) REFERENCES dispositions(id) ON DELETE CASCADE
);

-- Disposition recipients (recipient log)
CREATE TABLE IF NOT EXISTS disposition_recipients (
	id TEXT PRIMARY KEY,
	disposition_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY (disposition_id) REFERENCES dispositions(id) ON DELETE CASCADE,
	UNIQUE(disposition_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_disposition_recipients_user ON disposition_recipients(user_id);

-- Participants (per user read/execution state)
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

-- Content tag catalogue (predefined instructions)
CREATE TABLE IF NOT EXISTS content_tags (
	id TEXT PRIMARY KEY,
	phrase TEXT NOT NULL UNIQUE,
	sort_order INTEGER NOT NULL DEFAULT 0
);
`

// InitSchema creates the schema on a fresh database or migrates an existing one.
func InitSchema(database *sql.DB) error {
	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount > 0 {
		// schema_version table exists - run any pending migrations
		return RunMigrations(database)
	}

	// Fresh install - create modern schema directly and mark all migrations applied
	if _, err := database.Exec(SchemaSQL); err != nil {
		return err
	}
	if err := createVersionTable(database); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
