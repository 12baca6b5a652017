package db

// SchemaVersion is the schema version this binary writes. Databases carrying a
// higher PRAGMA user_version were written by a newer release and are refused.
const SchemaVersion = 2

// SchemaSQL is the complete schema for fresh installs, reflecting the current
// state after all migrations.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL() instead of hardcoding CREATE TABLE
// statements, so repository code referencing a column that does not exist
// fails immediately with "no such column" at development time.
//
// When adding columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here and bump SchemaVersion
const SchemaSQL = `
-- Consensus runs (one row per stage execution)
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

-- Agent outputs (one row per agent per run)
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

-- Playbook bullets (curated heuristics injected into prompts)
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
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
