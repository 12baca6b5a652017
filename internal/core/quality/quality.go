// Package quality contains the pure types and decision logic for quality
// gates. Gate execution (agents, operator prompts) lives in the app layer.
package quality

import (
	"fmt"

	"github.com/example/speckit/internal/core/spec"
)

// Gate names the quality command a checkpoint runs.
type Gate string

const (
	GateClarify   Gate = "clarify"
	GateAnalyze   Gate = "analyze"
	GateChecklist Gate = "checklist"
)

// Stage returns the quality stage backing the gate.
func (g Gate) Stage() spec.Stage {
	switch g {
	case GateClarify:
		return spec.StageClarify
	case GateAnalyze:
		return spec.StageAnalyze
	case GateChecklist:
		return spec.StageChecklist
	}
	return ""
}

// Magnitude ranks an escalated question.
type Magnitude string

const (
	MagnitudeCritical  Magnitude = "critical"
	MagnitudeImportant Magnitude = "important"
	MagnitudeMinor     Magnitude = "minor"
)

// Question is one issue a gate wants resolved.
type Question struct {
	ID               string
	Magnitude        Magnitude
	Question         string
	Context          string
	AgentAnswers     []string
	Gpt5Reasoning    string
	SuggestedOptions []string
}

// OutcomeKind is the gate verdict.
type OutcomeKind string

const (
	Pass     OutcomeKind = "pass"
	Escalate OutcomeKind = "escalate"
	Fail     OutcomeKind = "fail"
)

// Outcome is the result of running one gate.
type Outcome struct {
	Kind      OutcomeKind
	Questions []Question
	Reason    string
}

// PassOutcome is the no-issue verdict.
func PassOutcome() Outcome { return Outcome{Kind: Pass} }

// EscalateOutcome pauses the run and presents questions to the operator.
func EscalateOutcome(questions []Question) Outcome {
	return Outcome{Kind: Escalate, Questions: questions}
}

// FailOutcome aborts the run with a reported reason.
func FailOutcome(reason string) Outcome {
	return Outcome{Kind: Fail, Reason: reason}
}

// Classify sorts raised questions into a verdict: no questions pass, any
// critical or important question escalates, only-minor issues pass with the
// questions attached for the record.
func Classify(questions []Question) Outcome {
	if len(questions) == 0 {
		return PassOutcome()
	}
	var escalated []Question
	for _, q := range questions {
		if q.Magnitude == MagnitudeCritical || q.Magnitude == MagnitudeImportant {
			escalated = append(escalated, q)
		}
	}
	if len(escalated) > 0 {
		return EscalateOutcome(escalated)
	}
	return Outcome{Kind: Pass, Questions: questions}
}

// GatesFor returns the gates a checkpoint runs, in order.
func GatesFor(checkpoint string) ([]Gate, error) {
	switch checkpoint {
	case "before_specify":
		return []Gate{GateClarify}, nil
	case "after_specify":
		return []Gate{GateAnalyze}, nil
	case "after_tasks":
		return []Gate{GateAnalyze, GateChecklist}, nil
	}
	return nil, fmt.Errorf("unknown quality checkpoint %q", checkpoint)
}

// ValidateAnswers checks operator answers cover every escalated question.
func ValidateAnswers(questions []Question, answers map[string]string) error {
	for _, q := range questions {
		if answers[q.ID] == "" {
			return fmt.Errorf("question %s (%s) is unanswered", q.ID, q.Magnitude)
		}
	}
	return nil
}
