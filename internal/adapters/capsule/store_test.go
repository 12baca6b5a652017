package capsule

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data := []byte(`{"schema_version":"agent_output@1.0","content":"hello"}` + "\n")
	uri, err := store.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(uri, "capsule://") {
		t.Fatalf("uri = %q, want capsule:// prefix", uri)
	}
	if len(uri) != len("capsule://")+64 {
		t.Errorf("uri hash length wrong: %q", uri)
	}

	got, err := store.Get(ctx, uri)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}
}

func TestPutIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data := []byte("same bytes")
	uri1, err := store.Put(ctx, data)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	uri2, err := store.Put(ctx, data)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if uri1 != uri2 {
		t.Errorf("same bytes gave different URIs: %s vs %s", uri1, uri2)
	}

	other, err := store.Put(ctx, []byte("different bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if other == uri1 {
		t.Error("different bytes gave the same URI")
	}
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	uri := "capsule://" + strings.Repeat("ab", 32)
	if _, err := store.Get(ctx, uri); err == nil {
		t.Error("expected not found error")
	}

	ok, err := store.Exists(ctx, uri)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists = true for missing capsule")
	}

	if _, err := store.Get(ctx, "http://not-a-capsule"); err == nil {
		t.Error("expected invalid URI error")
	}
}

func TestEmitEventMonotonicSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		event, err := store.EmitEvent(ctx, "SPEC-KIT-001", "run-1", "StageStarted", nil)
		if err != nil {
			t.Fatalf("EmitEvent: %v", err)
		}
		if event.Seq != i {
			t.Errorf("seq = %d, want %d", event.Seq, i)
		}
	}

	// A different run has its own sequence.
	event, err := store.EmitEvent(ctx, "SPEC-KIT-001", "run-2", "StageStarted", nil)
	if err != nil {
		t.Fatalf("EmitEvent: %v", err)
	}
	if event.Seq != 1 {
		t.Errorf("new run seq = %d, want 1", event.Seq)
	}
}

func TestEmitEventRecoversSeqAfterReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.EmitEvent(ctx, "SPEC-KIT-001", "run-1", "StageStarted", nil); err != nil {
			t.Fatalf("EmitEvent: %v", err)
		}
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	event, err := reopened.EmitEvent(ctx, "SPEC-KIT-001", "run-1", "StageCompleted", nil)
	if err != nil {
		t.Fatalf("EmitEvent: %v", err)
	}
	if event.Seq != 3 {
		t.Errorf("seq after reopen = %d, want 3", event.Seq)
	}
}

func TestListEventsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	kinds := []string{"StageStarted", "AgentCompleted", "StageCompleted", "AgentCompleted"}
	for _, k := range kinds {
		if _, err := store.EmitEvent(ctx, "SPEC-KIT-001", "run-1", k, nil); err != nil {
			t.Fatalf("EmitEvent: %v", err)
		}
	}

	all, err := store.ListEvents(ctx, "SPEC-KIT-001", "run-1", "")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	for i, e := range all {
		if e.Seq != i+1 {
			t.Errorf("event %d has seq %d", i, e.Seq)
		}
	}

	agents, err := store.ListEvents(ctx, "SPEC-KIT-001", "run-1", "AgentCompleted")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(agents) != 2 {
		t.Errorf("expected 2 AgentCompleted events, got %d", len(agents))
	}
}

func TestCommitManual(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CommitManual(ctx, "SPEC-KIT-001", "run-1", "after_plan"); err != nil {
		t.Fatalf("CommitManual: %v", err)
	}

	events, err := store.ListEvents(ctx, "SPEC-KIT-001", "run-1", "commit_manual")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 commit event, got %d", len(events))
	}
	if events[0].Payload.Label != "after_plan" {
		t.Errorf("label = %q, want after_plan", events[0].Payload.Label)
	}
}

func TestPutLeavesNoTempOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Put(context.Background(), []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var temps []string
	filepath.Walk(filepath.Join(dir, "objects"), func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && strings.HasPrefix(info.Name(), ".put-") {
			temps = append(temps, path)
		}
		return nil
	})
	if len(temps) != 0 {
		t.Errorf("temp files left behind: %v", temps)
	}
}
