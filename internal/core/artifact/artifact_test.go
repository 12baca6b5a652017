package artifact

import (
	"bytes"
	"strings"
	"testing"
)

func sampleOutput() AgentOutput {
	return AgentOutput{
		SchemaVersion: SchemaAgentOutput,
		SpecID:        "SPEC-DEMO-001",
		RunID:         "run-1",
		Stage:         "plan",
		Agent:         "gpt_pro",
		Model:         "gpt-5",
		Content:       "## Plan\n- step one\n",
		InputTokens:   120,
		OutputTokens:  48,
		DurationMs:    900,
	}
}

func TestCanonicalizeStable(t *testing.T) {
	a, err := Canonicalize(sampleOutput())
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	b, err := Canonicalize(sampleOutput())
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical bytes differ across calls for identical artifact")
	}
	if !bytes.HasSuffix(a, []byte("\n")) {
		t.Error("canonical bytes must end with a single LF")
	}
	if bytes.Count(a, []byte("\n")) != 1 {
		t.Error("canonical form is a single line")
	}
	if !bytes.HasPrefix(a, []byte(`{"schema_version":"agent_output@1.0"`)) {
		t.Errorf("line must begin with schema_version, got %s", a[:40])
	}
}

func TestHashStability(t *testing.T) {
	a, _ := Canonicalize(sampleOutput())
	h1 := HashBytes(a)
	h2 := HashBytes(a)
	if h1 != h2 || len(h1) != 64 {
		t.Errorf("hash unstable or malformed: %s vs %s", h1, h2)
	}

	altered := sampleOutput()
	altered.Content += "x"
	b, _ := Canonicalize(altered)
	if HashBytes(b) == h1 {
		t.Error("different content produced the same hash")
	}
}

func TestURIFor(t *testing.T) {
	uri, err := URIFor(sampleOutput())
	if err != nil {
		t.Fatalf("URIFor: %v", err)
	}
	if !strings.HasPrefix(uri.String(), URIScheme) {
		t.Errorf("URI missing scheme: %s", uri)
	}
	parsed, err := ParseURI(uri.String())
	if err != nil {
		t.Fatalf("ParseURI round-trip: %v", err)
	}
	if parsed.Hash() != uri.Hash() {
		t.Errorf("hash mismatch after parse: %s vs %s", parsed.Hash(), uri.Hash())
	}
}

func TestParseURIRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"capsule://short",
		"file://" + strings.Repeat("a", 64),
		URIScheme + strings.Repeat("z", 64), // not hex
	}
	for _, raw := range bad {
		if _, err := ParseURI(raw); err == nil {
			t.Errorf("ParseURI(%q) should fail", raw)
		}
	}
}

func TestAllSchemasLeadTheirLines(t *testing.T) {
	artifacts := []Artifact{
		IntakeAnswers{SchemaVersion: SchemaIntakeAnswers},
		DesignBrief{SchemaVersion: SchemaDesignBrief},
		ProjectBrief{SchemaVersion: SchemaProjectBrief},
		PromptBundle{SchemaVersion: SchemaPromptBundle},
		sampleOutput(),
		RoutingDecision{SchemaVersion: SchemaRoutingDecision},
		AceIntakeFrame{SchemaVersion: SchemaAceIntakeFrame},
		AceMilestoneFrame{SchemaVersion: SchemaAceMilestoneFrame},
		QualityGateDecision{SchemaVersion: SchemaQualityGateDecision},
		StageOutcome{SchemaVersion: SchemaStageOutcome},
		MaieuticSpec{SchemaVersion: SchemaMaieuticSpec},
	}
	for _, a := range artifacts {
		line, err := Canonicalize(a)
		if err != nil {
			t.Fatalf("Canonicalize(%s): %v", a.Schema(), err)
		}
		if !bytes.HasPrefix(line, []byte(`{"schema_version":"`+a.Schema()+`"`)) {
			t.Errorf("%s line does not begin with its schema_version: %s", a.Schema(), line[:minInt(len(line), 60)])
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
