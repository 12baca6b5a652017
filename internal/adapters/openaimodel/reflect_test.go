package openaimodel

import "testing"

func TestParseBullets(t *testing.T) {
	content := `{"bullets": [
		{"text": "Pin dependency versions in plan.md", "kind": "helpful", "scope": "plan", "confidence": 0.8, "tags": ["deps"]},
		{"text": "Skipping tests before audit", "kind": "harmful", "scope": "global", "confidence": 0.9}
	]}`
	bullets, err := parseBullets(content)
	if err != nil {
		t.Fatalf("parseBullets failed: %v", err)
	}
	if len(bullets) != 2 {
		t.Fatalf("expected 2 bullets, got %d", len(bullets))
	}
	if bullets[0].Kind != "helpful" || bullets[0].Scope != "plan" {
		t.Errorf("unexpected first bullet: %+v", bullets[0])
	}
	if bullets[1].Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", bullets[1].Confidence)
	}
}

func TestParseBulletsStripsCodeFence(t *testing.T) {
	content := "```json\n{\"bullets\": [{\"text\": \"Keep diffs small\", \"kind\": \"helpful\", \"confidence\": 0.7}]}\n```"
	bullets, err := parseBullets(content)
	if err != nil {
		t.Fatalf("parseBullets failed: %v", err)
	}
	if len(bullets) != 1 {
		t.Fatalf("expected 1 bullet, got %d", len(bullets))
	}
	if bullets[0].Scope != "global" {
		t.Errorf("empty scope should default to global, got %q", bullets[0].Scope)
	}
}

func TestParseBulletsNormalizes(t *testing.T) {
	content := `{"bullets": [
		{"text": "  padded  ", "kind": "bogus", "confidence": 1.7},
		{"text": "", "kind": "helpful", "confidence": 0.5},
		{"text": "negative", "kind": "neutral", "confidence": -0.3}
	]}`
	bullets, err := parseBullets(content)
	if err != nil {
		t.Fatalf("parseBullets failed: %v", err)
	}
	if len(bullets) != 2 {
		t.Fatalf("blank text must be dropped, got %d bullets", len(bullets))
	}
	if bullets[0].Kind != "neutral" {
		t.Errorf("unknown kind should normalize to neutral, got %q", bullets[0].Kind)
	}
	if bullets[0].Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %v", bullets[0].Confidence)
	}
	if bullets[1].Confidence != 0 {
		t.Errorf("confidence should clamp to 0, got %v", bullets[1].Confidence)
	}
}

func TestParseBulletsRejectsProse(t *testing.T) {
	if _, err := parseBullets("Here are some thoughts about the transcript."); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}
