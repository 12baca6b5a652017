package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with development fixtures: a few
// consensus runs with agent outputs and a starter playbook.
func SeedFixtures(database *sql.DB) error {
	now := time.Now().UTC().Format(time.RFC3339)

	runs := []struct {
		id, specID, stage string
		ok, degraded      int
	}{
		{"RUN-001", "SPEC-KIT-001", "plan", 1, 0},
		{"RUN-002", "SPEC-KIT-001", "tasks", 1, 0},
		{"RUN-003", "SPEC-KIT-001", "implement", 1, 1},
		{"RUN-004", "SPEC-AUTH-002", "plan", 0, 0},
	}
	for _, r := range runs {
		if _, err := database.Exec(
			"INSERT INTO consensus_runs (id, spec_id, stage, run_timestamp, consensus_ok, degraded) VALUES (?, ?, ?, ?, ?, ?)",
			r.id, r.specID, r.stage, now, r.ok, r.degraded,
		); err != nil {
			return fmt.Errorf("seed consensus_runs: %w", err)
		}
	}

	outputs := []struct{ id, runID, agent, model, content string }{
		{"OUT-001", "RUN-001", "gpt_pro", "gpt-5", "Plan draft covering milestones and risks."},
		{"OUT-002", "RUN-001", "gemini", "gemini-2.5-pro", "Alternative plan emphasizing test coverage."},
		{"OUT-003", "RUN-002", "gpt_codex", "gpt-5-codex", "Task breakdown with dependencies."},
		{"OUT-004", "RUN-003", "claude", "claude-opus-4", "Implementation diff summary."},
	}
	for _, o := range outputs {
		if _, err := database.Exec(
			"INSERT INTO agent_outputs (id, run_id, agent_name, model_version, content, output_timestamp) VALUES (?, ?, ?, ?, ?, ?)",
			o.id, o.runID, o.agent, o.model, o.content, now,
		); err != nil {
			return fmt.Errorf("seed agent_outputs: %w", err)
		}
	}

	bullets := []struct {
		id, text, kind, scope string
		confidence            float64
	}{
		{"PB-001", "Pin dependency versions before generating task lists", "helpful", "tasks", 0.8},
		{"PB-002", "Avoid rewriting migration history in place", "harmful", "implement", 0.7},
		{"PB-003", "Validation runs faster when fixtures are seeded once per suite", "neutral", "test", 0.5},
	}
	for _, b := range bullets {
		if _, err := database.Exec(
			"INSERT INTO playbook_bullets (id, text, kind, confidence, scope) VALUES (?, ?, ?, ?, ?)",
			b.id, b.text, b.kind, b.confidence, b.scope,
		); err != nil {
			return fmt.Errorf("seed playbook_bullets: %w", err)
		}
	}
	return nil
}
