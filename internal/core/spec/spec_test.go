package spec

import "testing"

func TestParseID(t *testing.T) {
	valid := []string{"SPEC-DEMO-001", "SPEC-OPS-005", "SPEC-KIT-072", "SPEC-A1-1234"}
	for _, raw := range valid {
		if _, err := ParseID(raw); err != nil {
			t.Errorf("ParseID(%q) returned error: %v", raw, err)
		}
	}

	invalid := []string{"", "SPEC-001", "spec-demo-001", "SPEC-DEMO-01", "SPEC-DEMO-001-extra", "TASK-DEMO-001"}
	for _, raw := range invalid {
		if _, err := ParseID(raw); err == nil {
			t.Errorf("ParseID(%q) should have failed", raw)
		}
	}
}

func TestIDKindAndNumber(t *testing.T) {
	id := ID("SPEC-DEMO-042")
	if id.Kind() != "DEMO" {
		t.Errorf("Kind() = %q, want DEMO", id.Kind())
	}
	if id.Number() != 42 {
		t.Errorf("Number() = %d, want 42", id.Number())
	}
}

func TestNextIDMonotonicWithinKind(t *testing.T) {
	existing := []ID{"SPEC-DEMO-001", "SPEC-DEMO-007", "SPEC-OPS-100"}
	if got := NextID("DEMO", existing); got != "SPEC-DEMO-008" {
		t.Errorf("NextID(DEMO) = %s, want SPEC-DEMO-008", got)
	}
	if got := NextID("OPS", existing); got != "SPEC-OPS-101" {
		t.Errorf("NextID(OPS) = %s, want SPEC-OPS-101", got)
	}
	if got := NextID("NEW", existing); got != "SPEC-NEW-001" {
		t.Errorf("NextID(NEW) = %s, want SPEC-NEW-001", got)
	}
}

func TestPipelineStagesOrder(t *testing.T) {
	want := []Stage{StagePlan, StageTasks, StageImplement, StageValidate, StageAudit, StageUnlock}
	got := PipelineStages()
	if len(got) != len(want) {
		t.Fatalf("PipelineStages() returned %d stages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got[i], want[i])
		}
		if got[i].Index() != i {
			t.Errorf("%s.Index() = %d, want %d", got[i], got[i].Index(), i)
		}
	}
}

func TestQualityStagesNotInPipeline(t *testing.T) {
	for _, s := range []Stage{StageClarify, StageAnalyze, StageChecklist} {
		if !s.IsQuality() {
			t.Errorf("%s.IsQuality() = false", s)
		}
		if s.Index() != -1 {
			t.Errorf("%s.Index() = %d, want -1", s, s.Index())
		}
	}
}

func TestStagePreconditions(t *testing.T) {
	if got := StageTasks.Precondition(); got != "plan.md" {
		t.Errorf("Tasks precondition = %q, want plan.md", got)
	}
	if got := StageImplement.Precondition(); got != "tasks.md" {
		t.Errorf("Implement precondition = %q, want tasks.md", got)
	}
	if got := StagePlan.Precondition(); got != "" {
		t.Errorf("Plan precondition = %q, want empty", got)
	}
}

func TestParseStage(t *testing.T) {
	if s, ok := ParseStage("speckit.implement"); !ok || s != StageImplement {
		t.Errorf("ParseStage(speckit.implement) = %v, %v", s, ok)
	}
	if s, ok := ParseStage("plan"); !ok || s != StagePlan {
		t.Errorf("ParseStage(plan) = %v, %v", s, ok)
	}
	if _, ok := ParseStage("ship"); ok {
		t.Error("ParseStage(ship) should not resolve")
	}
}

func TestAgentForOverrides(t *testing.T) {
	if a := AgentFor(StageImplement, nil); a != AgentClaude {
		t.Errorf("default implement agent = %s, want claude", a)
	}
	overrides := map[string]string{"implement": "gemini", "plan": "not_a_model"}
	if a := AgentFor(StageImplement, overrides); a != AgentGemini {
		t.Errorf("override implement agent = %s, want gemini", a)
	}
	// Unknown override values fall back to the default.
	if a := AgentFor(StagePlan, overrides); a != AgentGptPro {
		t.Errorf("bad override plan agent = %s, want gpt_pro", a)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Add authentication":     "add-authentication",
		"  Fix  CI!  ":           "fix-ci",
		"UPPER lower 123":        "upper-lower-123",
		"---":                    "",
		"reflex router (v2) fix": "reflex-router-v2-fix",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
