package app

import (
	"context"
	"testing"

	"github.com/example/speckit/internal/core/run"
)

func TestShipGateBlocksPrivateScratch(t *testing.T) {
	gate := NewShipGate(newMockWorkspace())

	verdict, err := gate.Validate(context.Background(), "SPEC-KIT-001", run.CaptureNone)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.Allowed() {
		t.Fatal("private scratch mode was allowed to ship")
	}
	if verdict.Kind != ShipBlockedPrivateScratch {
		t.Errorf("Kind = %q", verdict.Kind)
	}
	want := "Private scratch mode: switch capture mode to prompts_only or full_io to ship"
	if verdict.Message != want {
		t.Errorf("Message = %q, want %q", verdict.Message, want)
	}
}

func TestShipGateBlocksMissingMaieuticSpec(t *testing.T) {
	ws := newMockWorkspace()
	ws.seedEvidence("SPEC-KIT-001", "ace_milestone_implement.json", []byte("{}"))
	gate := NewShipGate(ws)

	verdict, err := gate.Validate(context.Background(), "SPEC-KIT-001", run.CapturePromptsOnly)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.Kind != ShipBlockedMissing {
		t.Fatalf("Kind = %q", verdict.Kind)
	}
	if verdict.MissingArtifact != "Maieutic Spec" {
		t.Errorf("MissingArtifact = %q", verdict.MissingArtifact)
	}
}

func TestShipGateBlocksMissingMilestoneFrame(t *testing.T) {
	ws := newMockWorkspace()
	ws.seedEvidence("SPEC-KIT-001", "maieutic_spec.json", []byte("{}"))
	gate := NewShipGate(ws)

	verdict, err := gate.Validate(context.Background(), "SPEC-KIT-001", run.CaptureFullIO)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.Kind != ShipBlockedMissing {
		t.Fatalf("Kind = %q", verdict.Kind)
	}
	if verdict.MissingArtifact != "ACE milestone frame" {
		t.Errorf("MissingArtifact = %q", verdict.MissingArtifact)
	}
}

func TestShipGateIgnoresNonJSONEvidence(t *testing.T) {
	ws := newMockWorkspace()
	ws.seedEvidence("SPEC-KIT-001", "maieutic_notes.txt", []byte("scratch"))
	ws.seedEvidence("SPEC-KIT-001", "ace_milestone_implement.json", []byte("{}"))
	gate := NewShipGate(ws)

	verdict, err := gate.Validate(context.Background(), "SPEC-KIT-001", run.CapturePromptsOnly)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.MissingArtifact != "Maieutic Spec" {
		t.Errorf("MissingArtifact = %q, want Maieutic Spec", verdict.MissingArtifact)
	}
}

func TestShipGateAllowsCompleteEvidence(t *testing.T) {
	ws := newMockWorkspace()
	ws.seedEvidence("SPEC-KIT-001", "maieutic_spec.json", []byte("{}"))
	ws.seedEvidence("SPEC-KIT-001", "ace_milestone_implement.json", []byte("{}"))
	gate := NewShipGate(ws)

	verdict, err := gate.Validate(context.Background(), "SPEC-KIT-001", run.CapturePromptsOnly)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !verdict.Allowed() {
		t.Errorf("complete evidence blocked: %q", verdict.Message)
	}
}
