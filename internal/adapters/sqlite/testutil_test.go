// Package sqlite_test contains integration tests for SQLite repositories.
//
// This file is the single point where the database schema is loaded for
// tests. All test setup functions use db.GetSchemaSQL() so tests run against
// the authoritative schema, preventing drift between test and production.
// Do not hardcode CREATE TABLE statements in test files.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/speckit/internal/adapters/sqlite"
	"github.com/example/speckit/internal/db"
	"github.com/example/speckit/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedConsensusRun inserts a test consensus run and returns its ID.
func seedConsensusRun(t *testing.T, testDB *sql.DB, id, specID, stage string) string {
	t.Helper()
	if id == "" {
		id = "RUN-001"
	}
	repo := sqlite.NewConsensusRunRepository(testDB)
	err := repo.Create(context.Background(), &secondary.ConsensusRunRecord{
		ID:           id,
		SpecID:       specID,
		Stage:        stage,
		RunTimestamp: "2026-01-15T10:00:00Z",
		ConsensusOK:  true,
	})
	if err != nil {
		t.Fatalf("failed to seed consensus run: %v", err)
	}
	return id
}
