package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/speckit/internal/ports/secondary"
)

// AgentOutputRepository implements secondary.AgentOutputRepository with SQLite.
type AgentOutputRepository struct {
	db *sql.DB
}

// NewAgentOutputRepository creates a new SQLite agent output repository.
func NewAgentOutputRepository(db *sql.DB) *AgentOutputRepository {
	return &AgentOutputRepository{db: db}
}

// Create persists a new agent output.
func (r *AgentOutputRepository) Create(ctx context.Context, output *secondary.AgentOutputRecord) error {
	var model sql.NullString
	if output.ModelVersion != "" {
		model = sql.NullString{String: output.ModelVersion, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO agent_outputs (id, run_id, agent_name, model_version, content, output_timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		output.ID, output.RunID, output.AgentName, model, output.Content, output.OutputTimestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create agent output: %w", err)
	}
	return nil
}

// ListByRun retrieves all outputs captured for a run.
func (r *AgentOutputRepository) ListByRun(ctx context.Context, runID string) ([]*secondary.AgentOutputRecord, error) {
	return r.list(ctx,
		"SELECT id, run_id, agent_name, model_version, content, output_timestamp, created_at FROM agent_outputs WHERE run_id = ? ORDER BY output_timestamp",
		runID,
	)
}

// ListByAgent retrieves outputs produced by a named agent.
func (r *AgentOutputRepository) ListByAgent(ctx context.Context, agentName string, limit int) ([]*secondary.AgentOutputRecord, error) {
	query := "SELECT id, run_id, agent_name, model_version, content, output_timestamp, created_at FROM agent_outputs WHERE agent_name = ? ORDER BY output_timestamp DESC"
	args := []any{agentName}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *AgentOutputRepository) list(ctx context.Context, query string, args ...any) ([]*secondary.AgentOutputRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent outputs: %w", err)
	}
	defer rows.Close()

	var records []*secondary.AgentOutputRecord
	for rows.Next() {
		var (
			model     sql.NullString
			createdAt time.Time
		)
		record := &secondary.AgentOutputRecord{}
		if err := rows.Scan(&record.ID, &record.RunID, &record.AgentName, &model, &record.Content, &record.OutputTimestamp, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent output: %w", err)
		}
		record.ModelVersion = model.String
		record.CreatedAt = createdAt.Format(time.RFC3339)
		records = append(records, record)
	}
	return records, rows.Err()
}
