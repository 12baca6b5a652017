package playbook

import (
	"strings"
	"testing"
)

const sampleConstitution = `# Project Constitution

## Engineering rules

- Always write table-driven tests for new code paths
- Never commit secrets or credentials to the repository
- We should keep functions under fifty lines when refactoring code
- tiny
- This line is not imperative at all, just a statement of fact
- Prefer composition over inheritance in module design

Some prose that is not a bullet.

- Avoid flaky sleeps in test assertions
`

func TestExtractConstitution(t *testing.T) {
	reqs := ExtractConstitution(sampleConstitution)
	if len(reqs) != 5 {
		t.Fatalf("extracted %d bullets, want 5: %+v", len(reqs), reqs)
	}

	// Subject-led bullet rewritten to imperative voice.
	var foundRewritten bool
	for _, r := range reqs {
		if strings.HasPrefix(r.Text, "Should keep functions") {
			foundRewritten = true
			if r.Scope != "implement" {
				t.Errorf("refactoring bullet scope = %q, want implement", r.Scope)
			}
		}
	}
	if !foundRewritten {
		t.Error("subject-led bullet was not rewritten to imperative voice")
	}
}

func TestExtractConstitutionKinds(t *testing.T) {
	reqs := ExtractConstitution(sampleConstitution)
	byText := make(map[string]Kind)
	for _, r := range reqs {
		byText[r.Text] = r.Kind
	}
	if byText["Never commit secrets or credentials to the repository"] != Harmful {
		t.Error("never-bullet should be harmful")
	}
	if byText["Always write table-driven tests for new code paths"] != Helpful {
		t.Error("always-bullet should be helpful")
	}
}

func TestExtractConstitutionTags(t *testing.T) {
	reqs := ExtractConstitution(sampleConstitution)
	byText := make(map[string][]string)
	for _, r := range reqs {
		byText[r.Text] = r.Tags
	}
	tags := byText["Never commit secrets or credentials to the repository"]
	if len(tags) != 1 || tags[0] != "security" {
		t.Errorf("secrets bullet tags = %v, want [security]", tags)
	}
	if got := byText["Prefer composition over inheritance in module design"]; got != nil {
		t.Errorf("untagged bullet carries tags %v", got)
	}
}

func TestExtractConstitutionCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("- Always check the error returned from every call\n")
	}
	// Identical bullets are not deduped here (dedupe happens at selection),
	// so the cap alone bounds the output.
	if got := ExtractConstitution(b.String()); len(got) != maxBullets {
		t.Errorf("extracted %d, want cap %d", len(got), maxBullets)
	}
}

func TestGroupByScope(t *testing.T) {
	reqs := []PinRequest{
		{Scope: "global", Text: "a"},
		{Scope: "implement", Text: "b"},
		{Scope: "global", Text: "c"},
	}
	grouped := GroupByScope(reqs)
	if len(grouped["global"]) != 2 || len(grouped["implement"]) != 1 {
		t.Errorf("grouping wrong: %+v", grouped)
	}
}

func TestInferTags(t *testing.T) {
	tags := InferTags("Never log credentials; benchmark hot paths")
	want := map[string]bool{"security": true, "performance": true}
	if len(tags) != 2 {
		t.Fatalf("tags = %v", tags)
	}
	for _, tag := range tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}
