// Package run contains the pure state machine for a pipeline run. The
// orchestrator is the only writer; everything here is transition logic with
// no I/O.
package run

import (
	"fmt"

	"github.com/example/speckit/internal/core/spec"
)

// PhaseKind enumerates the orchestrator phases within a stage.
type PhaseKind string

const (
	PhaseGuardrail       PhaseKind = "guardrail"
	PhaseQualityGate     PhaseKind = "quality_gate"
	PhaseExecutingAgents PhaseKind = "executing_agents"
	PhasePersisting      PhaseKind = "persisting"
	PhaseReflectCurate   PhaseKind = "reflect_curate"
	PhaseDone            PhaseKind = "done"
	PhaseFailed          PhaseKind = "failed"
)

// Phase is the current orchestrator phase. Expected/Completed are only
// populated while executing agents.
type Phase struct {
	Kind      PhaseKind
	Expected  []string
	Completed map[string]bool
}

// Checkpoint names a quality-gate checkpoint.
type Checkpoint string

const (
	CheckpointBeforeSpecify Checkpoint = "before_specify"
	CheckpointAfterSpecify  Checkpoint = "after_specify"
	CheckpointAfterTasks    Checkpoint = "after_tasks"
)

// HalMode is the optional human-at-loop mode for a run.
type HalMode string

const (
	HalNone HalMode = ""
	HalLive HalMode = "live"
	HalMock HalMode = "mock"
)

// PipelineConfig is the per-run policy snapshot. It is frozen when the run
// starts; reload never touches a live run.
type PipelineConfig struct {
	QualityGatesEnabled  bool
	CaptureMode          CaptureMode
	ReflexEnabled        bool
	ReflexEndpoint       string
	ReflectThreshold     int
	DegradedAfterRetries int
	StageTimeoutSeconds  int
	AgentOverrides       map[string]string
	SliceSize            int
}

// CaptureMode controls what run I/O is persisted to the capsule.
type CaptureMode string

const (
	CaptureNone        CaptureMode = "none"
	CapturePromptsOnly CaptureMode = "prompts_only"
	CaptureFullIO      CaptureMode = "full_io"
)

// ParseCaptureMode validates a configured capture mode.
func ParseCaptureMode(raw string) (CaptureMode, error) {
	switch CaptureMode(raw) {
	case CaptureNone, CapturePromptsOnly, CaptureFullIO:
		return CaptureMode(raw), nil
	}
	return "", fmt.Errorf("invalid capture mode %q (none, prompts_only, full_io)", raw)
}

// State is the SpecAutoState for one pipeline run.
type State struct {
	SpecID               spec.ID
	Goal                 string
	RunID                string
	Stages               []spec.Stage
	CurrentIndex         int
	Phase                Phase
	QualityGatesEnabled  bool
	CompletedCheckpoints map[Checkpoint]bool
	Config               PipelineConfig
	Hal                  HalMode
}

// New creates a run at the first stage, in the guardrail phase.
func New(specID spec.ID, goal, runID string, cfg PipelineConfig, hal HalMode) *State {
	return &State{
		SpecID:               specID,
		Goal:                 goal,
		RunID:                runID,
		Stages:               spec.PipelineStages(),
		CurrentIndex:         0,
		Phase:                Phase{Kind: PhaseGuardrail},
		QualityGatesEnabled:  cfg.QualityGatesEnabled,
		CompletedCheckpoints: make(map[Checkpoint]bool),
		Config:               cfg,
		Hal:                  hal,
	}
}

// Resume creates a run positioned at the first incomplete stage.
// completed lists the stages whose persistence already finished; a run may
// resume at any stage but never skips an earlier one.
func Resume(specID spec.ID, goal, runID string, cfg PipelineConfig, completed []spec.Stage) (*State, error) {
	s := New(specID, goal, runID, cfg, HalNone)
	done := make(map[spec.Stage]bool, len(completed))
	for _, st := range completed {
		done[st] = true
	}
	for i, st := range s.Stages {
		if !done[st] {
			// Every earlier stage must be complete: no skipping.
			for j := 0; j < i; j++ {
				if !done[s.Stages[j]] {
					return nil, fmt.Errorf("cannot resume %s at %s: earlier stage %s incomplete", specID, st, s.Stages[j])
				}
			}
			s.CurrentIndex = i
			return s, nil
		}
	}
	s.CurrentIndex = len(s.Stages)
	s.Phase = Phase{Kind: PhaseDone}
	return s, nil
}

// CurrentStage returns the stage at CurrentIndex.
func (s *State) CurrentStage() (spec.Stage, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Stages) {
		return "", false
	}
	return s.Stages[s.CurrentIndex], true
}

// Terminal reports whether the run has finished, successfully or not.
func (s *State) Terminal() bool {
	return s.Phase.Kind == PhaseDone || s.Phase.Kind == PhaseFailed
}

// CheckInvariants verifies the structural invariants of the state. It is
// called after every transition; a violation is a bug, not an input error.
func (s *State) CheckInvariants() error {
	if s.CurrentIndex < 0 || s.CurrentIndex > len(s.Stages) {
		return fmt.Errorf("current_index %d out of [0,%d]", s.CurrentIndex, len(s.Stages))
	}
	if s.CurrentIndex == len(s.Stages) && !s.Terminal() {
		return fmt.Errorf("current_index at end but phase %s is not terminal", s.Phase.Kind)
	}
	if s.Phase.Kind == PhaseExecutingAgents && len(s.Phase.Expected) == 0 {
		return fmt.Errorf("executing_agents phase with no expected agents")
	}
	return nil
}
