// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/speckit/internal/ports/secondary"
)

// ConsensusRunRepository implements secondary.ConsensusRunRepository with SQLite.
type ConsensusRunRepository struct {
	db *sql.DB
}

// NewConsensusRunRepository creates a new SQLite consensus run repository.
func NewConsensusRunRepository(db *sql.DB) *ConsensusRunRepository {
	return &ConsensusRunRepository{db: db}
}

// Create persists a new consensus run.
func (r *ConsensusRunRepository) Create(ctx context.Context, run *secondary.ConsensusRunRecord) error {
	var synthesis sql.NullString
	if run.SynthesisJSON != "" {
		synthesis = sql.NullString{String: run.SynthesisJSON, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO consensus_runs (id, spec_id, stage, run_timestamp, consensus_ok, degraded, synthesis_json) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.SpecID, run.Stage, run.RunTimestamp, run.ConsensusOK, run.Degraded, synthesis,
	)
	if err != nil {
		return fmt.Errorf("failed to create consensus run: %w", err)
	}
	return nil
}

// GetByID retrieves a consensus run by its ID.
func (r *ConsensusRunRepository) GetByID(ctx context.Context, id string) (*secondary.ConsensusRunRecord, error) {
	record, err := r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT id, spec_id, stage, run_timestamp, consensus_ok, degraded, synthesis_json, created_at FROM consensus_runs WHERE id = ?",
		id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("consensus run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consensus run: %w", err)
	}
	return record, nil
}

// List retrieves consensus runs matching the given filters.
func (r *ConsensusRunRepository) List(ctx context.Context, filters secondary.ConsensusRunFilters) ([]*secondary.ConsensusRunRecord, error) {
	query := "SELECT id, spec_id, stage, run_timestamp, consensus_ok, degraded, synthesis_json, created_at FROM consensus_runs WHERE 1=1"
	args := []any{}

	if filters.SpecID != "" {
		query += " AND spec_id = ?"
		args = append(args, filters.SpecID)
	}
	if filters.Stage != "" {
		query += " AND stage = ?"
		args = append(args, filters.Stage)
	}
	query += " ORDER BY run_timestamp DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list consensus runs: %w", err)
	}
	defer rows.Close()

	var records []*secondary.ConsensusRunRecord
	for rows.Next() {
		record, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consensus run: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkDegraded flags a run as having recovered through retries.
func (r *ConsensusRunRepository) MarkDegraded(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE consensus_runs SET degraded = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark run degraded: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("consensus run %s not found", id)
	}
	return nil
}

// SetSynthesis stores the synthesized consensus result for a run.
func (r *ConsensusRunRepository) SetSynthesis(ctx context.Context, id, synthesisJSON string, consensusOK bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE consensus_runs SET synthesis_json = ?, consensus_ok = ? WHERE id = ?",
		synthesisJSON, consensusOK, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set synthesis: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("consensus run %s not found", id)
	}
	return nil
}

// LatestForStage returns the most recent run for a spec and stage, or nil.
func (r *ConsensusRunRepository) LatestForStage(ctx context.Context, specID, stage string) (*secondary.ConsensusRunRecord, error) {
	record, err := r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT id, spec_id, stage, run_timestamp, consensus_ok, degraded, synthesis_json, created_at FROM consensus_runs WHERE spec_id = ? AND stage = ? ORDER BY run_timestamp DESC LIMIT 1",
		specID, stage,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ConsensusRunRepository) scanOne(row rowScanner) (*secondary.ConsensusRunRecord, error) {
	var (
		synthesis sql.NullString
		createdAt time.Time
	)
	record := &secondary.ConsensusRunRecord{}
	err := row.Scan(&record.ID, &record.SpecID, &record.Stage, &record.RunTimestamp, &record.ConsensusOK, &record.Degraded, &synthesis, &createdAt)
	if err != nil {
		return nil, err
	}
	record.SynthesisJSON = synthesis.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	return record, nil
}
