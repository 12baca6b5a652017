package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_consensus_and_agent_output_tables",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "create_playbook_bullets_table",
		Up:      migrationV2,
	},
}

// RunMigrations brings the database up to SchemaVersion. Schema state is
// tracked with PRAGMA user_version. A database at a version higher than
// SchemaVersion was written by a newer release and is refused.
func RunMigrations(database *sql.DB) error {
	current, err := userVersion(database)
	if err != nil {
		return err
	}

	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than application version %d: upgrade the binary", current, SchemaVersion)
	}

	if current == 0 {
		// Fresh database: apply the authoritative schema in one shot.
		if _, err := database.Exec(SchemaSQL); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return setUserVersion(database, SchemaVersion)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := m.Up(database); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if err := setUserVersion(database, m.Version); err != nil {
			return err
		}
	}
	return nil
}

func userVersion(database *sql.DB) (int, error) {
	var v int
	if err := database.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read user_version: %w", err)
	}
	return v, nil
}

func setUserVersion(database *sql.DB, v int) error {
	// PRAGMA does not accept bound parameters.
	if _, err := database.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

func migrationV1(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS consensus_runs (
			id TEXT PRIMARY KEY,
			spec_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			run_timestamp TEXT NOT NULL,
			consensus_ok INTEGER NOT NULL DEFAULT 0,
			degraded INTEGER NOT NULL DEFAULT 0,
			synthesis_json TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(spec_id, stage, run_timestamp)
		);
		CREATE INDEX IF NOT EXISTS idx_consensus_runs_spec_stage ON consensus_runs(spec_id, stage);
		CREATE INDEX IF NOT EXISTS idx_consensus_runs_timestamp ON consensus_runs(run_timestamp);

		CREATE TABLE IF NOT EXISTS agent_outputs (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			model_version TEXT,
			content TEXT NOT NULL,
			output_timestamp TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES consensus_runs(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_agent_outputs_run ON agent_outputs(run_id);
		CREATE INDEX IF NOT EXISTS idx_agent_outputs_agent ON agent_outputs(agent_name);
	`)
	return err
}

func migrationV2(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS playbook_bullets (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('helpful', 'harmful', 'neutral')),
			confidence REAL NOT NULL DEFAULT 0.5,
			scope TEXT NOT NULL DEFAULT 'global',
			tags TEXT,
			helpful_count INTEGER NOT NULL DEFAULT 0,
			harmful_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_playbook_bullets_scope ON playbook_bullets(scope);
	`)
	return err
}
