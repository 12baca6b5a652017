package run

import (
	"testing"

	"github.com/example/speckit/internal/core/spec"
)

func testConfig() PipelineConfig {
	return PipelineConfig{
		QualityGatesEnabled: true,
		CaptureMode:         CapturePromptsOnly,
		StageTimeoutSeconds: 300,
	}
}

func TestNewStartsAtGuardrail(t *testing.T) {
	s := New("SPEC-DEMO-001", "Add authentication", "run-1", testConfig(), HalNone)
	if s.Phase.Kind != PhaseGuardrail {
		t.Errorf("phase = %s, want guardrail", s.Phase.Kind)
	}
	if s.CurrentIndex != 0 {
		t.Errorf("current_index = %d, want 0", s.CurrentIndex)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}

func TestFullStageCycle(t *testing.T) {
	s := New("SPEC-DEMO-001", "goal", "run-1", testConfig(), HalNone)

	for i := range s.Stages {
		if s.Phase.Kind != PhaseGuardrail {
			t.Fatalf("stage %d: phase = %s, want guardrail", i, s.Phase.Kind)
		}
		if err := s.BeginExecution([]string{"claude"}); err != nil {
			t.Fatalf("stage %d BeginExecution: %v", i, err)
		}
		all, err := s.AgentCompleted("claude")
		if err != nil || !all {
			t.Fatalf("stage %d AgentCompleted: all=%v err=%v", i, all, err)
		}
		if err := s.BeginPersist(); err != nil {
			t.Fatalf("stage %d BeginPersist: %v", i, err)
		}
		if err := s.Advance(); err != nil {
			t.Fatalf("stage %d Advance: %v", i, err)
		}
	}

	if s.Phase.Kind != PhaseDone {
		t.Errorf("phase = %s, want done", s.Phase.Kind)
	}
	if s.CurrentIndex != len(s.Stages) {
		t.Errorf("current_index = %d, want %d", s.CurrentIndex, len(s.Stages))
	}
}

func TestBeginExecutionRequiresAgents(t *testing.T) {
	s := New("SPEC-DEMO-001", "goal", "run-1", testConfig(), HalNone)
	if err := s.BeginExecution(nil); err == nil {
		t.Error("BeginExecution with no agents should fail")
	}
}

func TestAdvanceOnlyAfterPersist(t *testing.T) {
	s := New("SPEC-DEMO-001", "goal", "run-1", testConfig(), HalNone)
	if err := s.Advance(); err == nil {
		t.Error("Advance from guardrail should fail")
	}
	s.BeginExecution([]string{"claude"})
	if err := s.Advance(); err == nil {
		t.Error("Advance from executing_agents should fail")
	}
}

func TestUnexpectedAgentRejected(t *testing.T) {
	s := New("SPEC-DEMO-001", "goal", "run-1", testConfig(), HalNone)
	s.BeginExecution([]string{"claude"})
	if _, err := s.AgentCompleted("gemini"); err == nil {
		t.Error("completion from unexpected agent should fail")
	}
}

func TestFailPreservesIndexBounds(t *testing.T) {
	s := New("SPEC-DEMO-001", "goal", "run-1", testConfig(), HalNone)
	s.BeginExecution([]string{"claude"})
	s.Fail()
	if s.Phase.Kind != PhaseFailed {
		t.Errorf("phase = %s, want failed", s.Phase.Kind)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants after Fail: %v", err)
	}
}

func TestResumeAtFirstIncomplete(t *testing.T) {
	s, err := Resume("SPEC-DEMO-001", "goal", "run-2", testConfig(),
		[]spec.Stage{spec.StagePlan, spec.StageTasks})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	stage, ok := s.CurrentStage()
	if !ok || stage != spec.StageImplement {
		t.Errorf("resumed at %s, want implement", stage)
	}
}

func TestResumeRefusesSkippedStage(t *testing.T) {
	// Tasks done but Plan missing: resuming would skip an earlier stage.
	if _, err := Resume("SPEC-DEMO-001", "goal", "run-2", testConfig(),
		[]spec.Stage{spec.StageTasks}); err == nil {
		t.Error("Resume with a gap should fail")
	}
}

func TestResumeAllComplete(t *testing.T) {
	s, err := Resume("SPEC-DEMO-001", "goal", "run-2", testConfig(), spec.PipelineStages())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s.Phase.Kind != PhaseDone {
		t.Errorf("phase = %s, want done", s.Phase.Kind)
	}
}

func TestCheckpointFiresOnce(t *testing.T) {
	s := New("SPEC-DEMO-001", "goal", "run-1", testConfig(), HalNone)
	cp, ok := s.CheckpointFor(spec.StagePlan)
	if !ok || cp != CheckpointBeforeSpecify {
		t.Fatalf("CheckpointFor(plan) = %s, %v", cp, ok)
	}
	s.CompleteCheckpoint(cp)
	if _, ok := s.CheckpointFor(spec.StagePlan); ok {
		t.Error("checkpoint fired twice")
	}
}

func TestCheckpointsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.QualityGatesEnabled = false
	s := New("SPEC-DEMO-001", "goal", "run-1", cfg, HalNone)
	if _, ok := s.CheckpointFor(spec.StagePlan); ok {
		t.Error("checkpoint with gates disabled")
	}
}

func TestEligibleForReflect(t *testing.T) {
	s := New("SPEC-DEMO-001", "goal", "run-1", testConfig(), HalNone)
	if s.EligibleForReflect(spec.StagePlan) {
		t.Error("plan should not trigger reflect at default threshold")
	}
	if !s.EligibleForReflect(spec.StageImplement) {
		t.Error("implement should trigger reflect")
	}
	if !s.EligibleForReflect(spec.StageUnlock) {
		t.Error("unlock should trigger reflect")
	}
}

func TestParseCaptureMode(t *testing.T) {
	for _, ok := range []string{"none", "prompts_only", "full_io"} {
		if _, err := ParseCaptureMode(ok); err != nil {
			t.Errorf("ParseCaptureMode(%q): %v", ok, err)
		}
	}
	if _, err := ParseCaptureMode("everything"); err == nil {
		t.Error("invalid capture mode accepted")
	}
}
