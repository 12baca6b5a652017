// Package primary defines the primary ports (driving adapters) for the
// application. The CLI and the MCP server call these interfaces.
package primary

import (
	"context"

	"github.com/example/speckit/internal/core/run"
	"github.com/example/speckit/internal/core/spec"
)

// PipelineService defines the primary port for pipeline runs.
type PipelineService interface {
	// RunStage executes a single stage for a spec.
	RunStage(ctx context.Context, req RunStageRequest) (*StageResult, error)

	// RunAuto executes all remaining stages in order, resuming from
	// persisted state when present.
	RunAuto(ctx context.Context, req RunAutoRequest) (*AutoResult, error)

	// Cancel marks the in-flight run for a spec as failed with partial
	// artifacts preserved.
	Cancel(ctx context.Context, specID string) error
}

// RunStageRequest contains parameters for running one stage.
type RunStageRequest struct {
	SpecID        string
	Stage         spec.Stage
	AgentOverride string // empty uses the stage default
	HalMode       run.HalMode
}

// RunAutoRequest contains parameters for a full pipeline run.
type RunAutoRequest struct {
	SpecID  string
	HalMode run.HalMode
	// FromStage resumes at a later stage; empty starts from the first
	// incomplete stage.
	FromStage spec.Stage
}

// StageResult summarizes one executed stage.
type StageResult struct {
	SpecID         string
	RunID          string
	Stage          spec.Stage
	Agent          spec.Agent
	Success        bool
	Degraded       bool
	OutputURI      string
	OutcomeURI     string
	ProjectionPath string
	Attempts       int
	TokensIn       int
	TokensOut      int
	DurationMs     int64
	// NeedsInput is set when a quality gate escalated; the caller should
	// exit with the needs-input code.
	NeedsInput bool
	Questions  []GateQuestion
	// BlockedReason carries the ship gate's structured refusal. A blocked
	// stage is not an error; the UI surfaces the message.
	BlockedReason string
}

// AutoResult summarizes a full pipeline run.
type AutoResult struct {
	SpecID   string
	RunID    string
	Stages   []*StageResult
	Done     bool
	Failed   bool
	FailedAt spec.Stage
	Reason   string
}

// GateQuestion is a quality gate question surfaced to the operator.
type GateQuestion struct {
	ID               string
	Magnitude        string
	Question         string
	Context          string
	SuggestedOptions []string
}
