package quality

import (
	"testing"

	"github.com/example/speckit/internal/core/spec"
)

func TestClassifyEmpty(t *testing.T) {
	if got := Classify(nil); got.Kind != Pass {
		t.Errorf("Classify(nil).Kind = %s, want pass", got.Kind)
	}
}

func TestClassifyEscalatesCriticalAndImportant(t *testing.T) {
	questions := []Question{
		{ID: "q1", Magnitude: MagnitudeMinor},
		{ID: "q2", Magnitude: MagnitudeCritical},
		{ID: "q3", Magnitude: MagnitudeImportant},
	}
	got := Classify(questions)
	if got.Kind != Escalate {
		t.Fatalf("Kind = %s, want escalate", got.Kind)
	}
	if len(got.Questions) != 2 {
		t.Errorf("escalated %d questions, want 2 (minor stays behind)", len(got.Questions))
	}
}

func TestClassifyMinorOnlyPasses(t *testing.T) {
	got := Classify([]Question{{ID: "q1", Magnitude: MagnitudeMinor}})
	if got.Kind != Pass {
		t.Errorf("Kind = %s, want pass", got.Kind)
	}
	if len(got.Questions) != 1 {
		t.Error("minor questions should stay attached to the pass outcome")
	}
}

func TestGatesFor(t *testing.T) {
	gates, err := GatesFor("after_tasks")
	if err != nil {
		t.Fatalf("GatesFor: %v", err)
	}
	if len(gates) != 2 || gates[0] != GateAnalyze || gates[1] != GateChecklist {
		t.Errorf("after_tasks gates = %v", gates)
	}
	if _, err := GatesFor("midnight"); err == nil {
		t.Error("unknown checkpoint accepted")
	}
}

func TestGateStage(t *testing.T) {
	if GateClarify.Stage() != spec.StageClarify {
		t.Error("clarify gate maps to wrong stage")
	}
	if !GateChecklist.Stage().IsQuality() {
		t.Error("gate stages must be quality stages")
	}
}

func TestValidateAnswers(t *testing.T) {
	questions := []Question{{ID: "q1"}, {ID: "q2"}}
	if err := ValidateAnswers(questions, map[string]string{"q1": "yes", "q2": "no"}); err != nil {
		t.Errorf("complete answers rejected: %v", err)
	}
	if err := ValidateAnswers(questions, map[string]string{"q1": "yes"}); err == nil {
		t.Error("missing answer accepted")
	}
}
