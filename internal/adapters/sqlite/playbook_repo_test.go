package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/speckit/internal/adapters/sqlite"
	"github.com/example/speckit/internal/ports/secondary"
)

func TestPlaybookRepository_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPlaybookRepository(db)
	ctx := context.Background()

	bullet := &secondary.PlaybookBulletRecord{
		ID:         "PB-001",
		Text:       "Pin dependency versions before generating task lists",
		Kind:       "helpful",
		Confidence: 0.8,
		Scope:      "tasks",
		Tags:       "deps,planning",
	}
	if err := repo.Upsert(ctx, bullet); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, "PB-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved.Kind != "helpful" {
		t.Errorf("expected kind helpful, got %s", retrieved.Kind)
	}
	if retrieved.Tags != "deps,planning" {
		t.Errorf("unexpected tags: %s", retrieved.Tags)
	}

	// Upsert again with new confidence updates in place.
	bullet.Confidence = 0.9
	if err := repo.Upsert(ctx, bullet); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	retrieved, err = repo.GetByID(ctx, "PB-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", retrieved.Confidence)
	}
}

func TestPlaybookRepository_Upsert_RejectsUnknownKind(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPlaybookRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, &secondary.PlaybookBulletRecord{
		ID:   "PB-001",
		Text: "something",
		Kind: "dangerous",
	})
	if err == nil {
		t.Fatal("expected CHECK constraint violation for unknown kind")
	}
}

func TestPlaybookRepository_ListByScope(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPlaybookRepository(db)
	ctx := context.Background()

	bullets := []*secondary.PlaybookBulletRecord{
		{ID: "PB-001", Text: "implement scoped", Kind: "helpful", Confidence: 0.6, Scope: "implement"},
		{ID: "PB-002", Text: "global rule", Kind: "helpful", Confidence: 0.9, Scope: "global"},
		{ID: "PB-003", Text: "test scoped", Kind: "neutral", Confidence: 0.5, Scope: "test"},
	}
	for _, b := range bullets {
		if err := repo.Upsert(ctx, b); err != nil {
			t.Fatalf("Upsert %s failed: %v", b.ID, err)
		}
	}

	scoped, err := repo.ListByScope(ctx, "implement", 0)
	if err != nil {
		t.Fatalf("ListByScope failed: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("expected implement + global bullets, got %d", len(scoped))
	}
	// Highest confidence first
	if scoped[0].ID != "PB-002" {
		t.Errorf("expected PB-002 first, got %s", scoped[0].ID)
	}
}

func TestPlaybookRepository_RecordFeedback(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPlaybookRepository(db)
	ctx := context.Background()

	if err := repo.Upsert(ctx, &secondary.PlaybookBulletRecord{
		ID: "PB-001", Text: "x", Kind: "helpful", Scope: "global",
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := repo.RecordFeedback(ctx, "PB-001", true); err != nil {
		t.Fatalf("RecordFeedback failed: %v", err)
	}
	if err := repo.RecordFeedback(ctx, "PB-001", true); err != nil {
		t.Fatalf("RecordFeedback failed: %v", err)
	}
	if err := repo.RecordFeedback(ctx, "PB-001", false); err != nil {
		t.Fatalf("RecordFeedback failed: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, "PB-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved.HelpfulCount != 2 || retrieved.HarmfulCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", retrieved.HelpfulCount, retrieved.HarmfulCount)
	}
}

func TestPlaybookRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewPlaybookRepository(db)
	ctx := context.Background()

	if err := repo.Upsert(ctx, &secondary.PlaybookBulletRecord{
		ID: "PB-001", Text: "x", Kind: "neutral", Scope: "global",
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := repo.Delete(ctx, "PB-001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, "PB-001"); err == nil {
		t.Error("expected error getting deleted bullet")
	}
	if err := repo.Delete(ctx, "PB-001"); err == nil {
		t.Error("expected error deleting missing bullet")
	}
}
