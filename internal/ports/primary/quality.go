package primary

import "context"

// QualityService defines the primary port for standalone quality commands
// (clarify, analyze, checklist) outside the stage sequence.
type QualityService interface {
	// RunGate executes one named quality gate for a spec.
	RunGate(ctx context.Context, req RunGateRequest) (*GateResult, error)

	// SubmitAnswers resolves an escalated gate with operator answers.
	SubmitAnswers(ctx context.Context, req SubmitAnswersRequest) (*GateResult, error)
}

// RunGateRequest contains parameters for running a quality gate.
type RunGateRequest struct {
	SpecID string
	Gate   string // clarify, analyze, checklist
}

// SubmitAnswersRequest carries the operator's answers for escalated questions.
type SubmitAnswersRequest struct {
	SpecID  string
	Gate    string
	Answers map[string]string // question ID -> answer
	Cancel  bool
}

// GateResult is the outcome of a quality gate invocation.
type GateResult struct {
	SpecID      string
	Gate        string
	Outcome     string // pass, escalate, fail
	Reason      string
	Questions   []GateQuestion
	DecisionURI string
}
