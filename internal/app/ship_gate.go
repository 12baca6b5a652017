package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/speckit/internal/core/run"
	"github.com/example/speckit/internal/ports/secondary"
)

// Ship gate verdicts. A blocked verdict is a structured refusal, not an
// error: the caller surfaces the message and exits cleanly.
const (
	ShipAllowed               = "allowed"
	ShipBlockedPrivateScratch = "blocked_private_scratch"
	ShipBlockedMissing        = "blocked_missing_artifact"
)

// ShipVerdict is the outcome of the unlock ship gate.
type ShipVerdict struct {
	Kind    string
	Message string
	// MissingArtifact names the absent artifact on a missing verdict.
	MissingArtifact string
}

// Allowed reports whether unlock may complete.
func (v ShipVerdict) Allowed() bool { return v.Kind == ShipAllowed }

// ShipGate checks the evidence directory before Unlock's final completion.
type ShipGate struct {
	workspace secondary.WorkspaceAdapter
}

// NewShipGate creates a ship gate over a workspace.
func NewShipGate(workspace secondary.WorkspaceAdapter) *ShipGate {
	return &ShipGate{workspace: workspace}
}

// Validate applies the three ship conditions in order: capture mode, maieutic
// spec presence, ACE milestone frame presence.
func (g *ShipGate) Validate(ctx context.Context, specID string, captureMode run.CaptureMode) (ShipVerdict, error) {
	if captureMode == run.CaptureNone {
		return ShipVerdict{
			Kind:    ShipBlockedPrivateScratch,
			Message: "Private scratch mode: switch capture mode to prompts_only or full_io to ship",
		}, nil
	}

	maieutic, err := g.hasEvidence(ctx, specID, "maieutic_")
	if err != nil {
		return ShipVerdict{}, fmt.Errorf("failed to scan evidence for maieutic spec: %w", err)
	}
	if !maieutic {
		return missingVerdict("Maieutic Spec"), nil
	}

	milestone, err := g.hasEvidence(ctx, specID, "ace_milestone_")
	if err != nil {
		return ShipVerdict{}, fmt.Errorf("failed to scan evidence for milestone frames: %w", err)
	}
	if !milestone {
		return missingVerdict("ACE milestone frame"), nil
	}

	return ShipVerdict{Kind: ShipAllowed}, nil
}

func (g *ShipGate) hasEvidence(ctx context.Context, specID, prefix string) (bool, error) {
	files, err := g.workspace.ListEvidence(ctx, specID, prefix)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".json") {
			return true, nil
		}
	}
	return false, nil
}

func missingVerdict(name string) ShipVerdict {
	return ShipVerdict{
		Kind:            ShipBlockedMissing,
		Message:         fmt.Sprintf("Required artifact missing: %s", name),
		MissingArtifact: name,
	}
}
