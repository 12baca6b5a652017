package primary

import "context"

// VerifyService defines the primary port for run verification and status.
type VerifyService interface {
	// Verify cross-checks the capsule event log, the audit rows, and the
	// filesystem projections for a spec's latest run.
	Verify(ctx context.Context, specID string) (*VerifyReport, error)

	// Status summarizes pipeline progress for a spec.
	Status(ctx context.Context, specID string) (*StatusReport, error)
}

// VerifyCheck is one consistency check result.
type VerifyCheck struct {
	Name    string
	Passed  bool
	Message string
}

// VerifyReport is the outcome of speckit verify.
type VerifyReport struct {
	SpecID string
	RunID  string
	Checks []VerifyCheck
	Passed bool
}

// StageStatus describes one stage's progress.
type StageStatus struct {
	Stage        string
	Complete     bool
	Degraded     bool
	RunTimestamp string
	Agent        string
}

// StatusReport summarizes a spec's pipeline state.
type StatusReport struct {
	SpecID       string
	CurrentStage string
	Done         bool
	Failed       bool
	Stages       []StageStatus
	TotalTokens  int
	TotalCostUSD float64
}
