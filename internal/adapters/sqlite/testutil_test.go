// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/dispo/internal/db"
)

const ts0 = "2024-05-02T08:00:00.000Z"

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	// Use the authoritative schema from schema.go
	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedUser inserts a test user and returns its ID.
func seedUser(t *testing.T, db *sql.DB, id, name, role string) string {
	t.Helper()
	_, err := db.Exec("INSERT INTO users (id, name, role, created_at) VALUES (?, ?, ?, ?)", id, name, role, ts0)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return id
}

// seedLetter inserts a test letter addressed to addresseeID and returns its ID.
func seedLetter(t *testing.T, db *sql.DB, id, addresseeID string) string {
	t.Helper()
	if id == "" {
		id = "LTR-001"
	}
	_, err := db.Exec(
		`INSERT INTO letters (id, number, classification, subject, sender, creator_id, addressee_id, letter_date, created_at)
		 VALUES (?, '001/2024', 'ordinary', 'Test Letter', 'Sender', 'USR-CLERK', ?, '2024-05-01', ?)`,
		id, addresseeID, ts0,
	)
	if err != nil {
		t.Fatalf("failed to seed letter: %v", err)
	}
	return id
}
