package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/speckit/internal/ports/secondary"
)

// PlaybookRepository implements secondary.PlaybookStore with SQLite.
type PlaybookRepository struct {
	db *sql.DB
}

// NewPlaybookRepository creates a new SQLite playbook repository.
func NewPlaybookRepository(db *sql.DB) *PlaybookRepository {
	return &PlaybookRepository{db: db}
}

// Upsert inserts a bullet or updates its text, kind, confidence and tags.
func (r *PlaybookRepository) Upsert(ctx context.Context, bullet *secondary.PlaybookBulletRecord) error {
	var tags sql.NullString
	if bullet.Tags != "" {
		tags = sql.NullString{String: bullet.Tags, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playbook_bullets (id, text, kind, confidence, scope, tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			kind = excluded.kind,
			confidence = excluded.confidence,
			scope = excluded.scope,
			tags = excluded.tags,
			updated_at = CURRENT_TIMESTAMP`,
		bullet.ID, bullet.Text, bullet.Kind, bullet.Confidence, bullet.Scope, tags,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert playbook bullet: %w", err)
	}
	return nil
}

// GetByID retrieves a bullet by its ID.
func (r *PlaybookRepository) GetByID(ctx context.Context, id string) (*secondary.PlaybookBulletRecord, error) {
	var (
		tags      sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)
	record := &secondary.PlaybookBulletRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, text, kind, confidence, scope, tags, helpful_count, harmful_count, created_at, updated_at FROM playbook_bullets WHERE id = ?",
		id,
	).Scan(&record.ID, &record.Text, &record.Kind, &record.Confidence, &record.Scope, &tags, &record.HelpfulCount, &record.HarmfulCount, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playbook bullet %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playbook bullet: %w", err)
	}

	record.Tags = tags.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	return record, nil
}

// ListByScope retrieves bullets for a scope plus global bullets, ordered by
// confidence descending.
func (r *PlaybookRepository) ListByScope(ctx context.Context, scope string, limit int) ([]*secondary.PlaybookBulletRecord, error) {
	query := "SELECT id, text, kind, confidence, scope, tags, helpful_count, harmful_count, created_at, updated_at FROM playbook_bullets WHERE scope = ? OR scope = 'global' ORDER BY confidence DESC, updated_at DESC"
	args := []any{scope}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbook bullets: %w", err)
	}
	defer rows.Close()

	var records []*secondary.PlaybookBulletRecord
	for rows.Next() {
		var (
			tags      sql.NullString
			createdAt time.Time
			updatedAt time.Time
		)
		record := &secondary.PlaybookBulletRecord{}
		if err := rows.Scan(&record.ID, &record.Text, &record.Kind, &record.Confidence, &record.Scope, &tags, &record.HelpfulCount, &record.HarmfulCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playbook bullet: %w", err)
		}
		record.Tags = tags.String
		record.CreatedAt = createdAt.Format(time.RFC3339)
		record.UpdatedAt = updatedAt.Format(time.RFC3339)
		records = append(records, record)
	}
	return records, rows.Err()
}

// RecordFeedback increments the helpful or harmful counter for a bullet.
func (r *PlaybookRepository) RecordFeedback(ctx context.Context, id string, helpful bool) error {
	column := "harmful_count"
	if helpful {
		column = "helpful_count"
	}
	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE playbook_bullets SET %s = %s + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", column, column),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("playbook bullet %s not found", id)
	}
	return nil
}

// Delete removes a bullet.
func (r *PlaybookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM playbook_bullets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playbook bullet: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("playbook bullet %s not found", id)
	}
	return nil
}
