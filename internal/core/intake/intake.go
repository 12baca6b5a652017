// Package intake contains the pure validation and brief-building logic for
// SPEC and project intake. Persistence ordering (capsule first, filesystem
// second) is the intake service's job.
package intake

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/example/speckit/internal/core/artifact"
)

// Answers is the fixed questionnaire before validation.
type Answers struct {
	Problem            string
	Users              []string
	Goals              []string
	NonGoals           []string
	Constraints        []string
	IntegrationPoints  []string
	AcceptanceCriteria []string
}

var acceptancePattern = regexp.MustCompile(`^.+ \(verify: .+\)$`)

// Validate applies the intake rules: no empty answers, no "unknown"
// placeholders, every acceptance criterion of the form
// "<text> (verify: <method>)".
func Validate(a Answers) error {
	if strings.TrimSpace(a.Problem) == "" {
		return fmt.Errorf("problem statement is required")
	}
	lists := []struct {
		name   string
		values []string
	}{
		{"users", a.Users},
		{"goals", a.Goals},
		{"non_goals", a.NonGoals},
		{"constraints", a.Constraints},
		{"integration_points", a.IntegrationPoints},
		{"acceptance_criteria", a.AcceptanceCriteria},
	}
	for _, l := range lists {
		if len(l.values) == 0 {
			return fmt.Errorf("%s must not be empty", l.name)
		}
		for _, v := range l.values {
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				return fmt.Errorf("%s contains an empty entry", l.name)
			}
			if strings.EqualFold(trimmed, "unknown") {
				return fmt.Errorf("%s contains %q: answer the question or drop the entry", l.name, v)
			}
		}
	}
	for _, c := range a.AcceptanceCriteria {
		if !acceptancePattern.MatchString(strings.TrimSpace(c)) {
			return fmt.Errorf("acceptance criterion %q must be of the form \"<text> (verify: <method>)\"", c)
		}
	}
	return nil
}

// Canonical converts validated answers into the capsule artifact.
func Canonical(specID string, a Answers) artifact.IntakeAnswers {
	return artifact.IntakeAnswers{
		SchemaVersion:      artifact.SchemaIntakeAnswers,
		SpecID:             specID,
		Problem:            strings.TrimSpace(a.Problem),
		Users:              trimAll(a.Users),
		Goals:              trimAll(a.Goals),
		NonGoals:           trimAll(a.NonGoals),
		Constraints:        trimAll(a.Constraints),
		IntegrationPoints:  trimAll(a.IntegrationPoints),
		AcceptanceCriteria: trimAll(a.AcceptanceCriteria),
	}
}

// BuildDesignBrief derives the design brief from canonical answers.
func BuildDesignBrief(specID, title string, answers artifact.IntakeAnswers, answersURI artifact.URI) artifact.DesignBrief {
	return artifact.DesignBrief{
		SchemaVersion: artifact.SchemaDesignBrief,
		SpecID:        specID,
		Title:         title,
		Problem:       answers.Problem,
		Outcome:       firstOr(answers.Goals, "Deliver the stated goals"),
		Scope:         answers.Goals,
		OutOfScope:    answers.NonGoals,
		Acceptance:    answers.AcceptanceCriteria,
		AnswersURI:    answersURI.String(),
	}
}

// BuildProjectBrief derives the project brief from canonical answers.
func BuildProjectBrief(name string, answers artifact.IntakeAnswers, answersURI artifact.URI) artifact.ProjectBrief {
	return artifact.ProjectBrief{
		SchemaVersion: artifact.SchemaProjectBrief,
		ProjectName:   name,
		Vision:        answers.Problem,
		Goals:         answers.Goals,
		Constraints:   answers.Constraints,
		AnswersURI:    answersURI.String(),
	}
}

// FrameFromDesignBrief derives the deterministic explainability frame from a
// design brief. No model is involved; every field restates what the brief
// already says.
func FrameFromDesignBrief(brief artifact.DesignBrief, briefURI artifact.URI) artifact.AceIntakeFrame {
	return artifact.AceIntakeFrame{
		SchemaVersion: artifact.SchemaAceIntakeFrame,
		SpecID:        brief.SpecID,
		Source:        "design_brief",
		Outcome:       brief.Outcome,
		Scope:         brief.Scope,
		Risks:         []string{},
		OpenQuestions: []string{},
		BriefURI:      briefURI.String(),
		AnswersURI:    brief.AnswersURI,
	}
}

// FrameFromProjectBrief derives the frame from a project brief. The schema
// captures no risks or open questions, so those stay empty rather than
// invented.
func FrameFromProjectBrief(brief artifact.ProjectBrief, briefURI artifact.URI) artifact.AceIntakeFrame {
	return artifact.AceIntakeFrame{
		SchemaVersion: artifact.SchemaAceIntakeFrame,
		Source:        "project_brief",
		Outcome:       "Deliver project goals (see scope)",
		Scope:         brief.Goals,
		Risks:         []string{},
		OpenQuestions: []string{},
		BriefURI:      briefURI.String(),
		AnswersURI:    brief.AnswersURI,
	}
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
