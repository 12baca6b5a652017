package run

import (
	"fmt"

	"github.com/example/speckit/internal/core/spec"
)

// BeginQualityGate moves guardrail -> quality_gate for the current stage.
func (s *State) BeginQualityGate() error {
	if s.Phase.Kind != PhaseGuardrail {
		return fmt.Errorf("begin quality gate from %s", s.Phase.Kind)
	}
	s.Phase = Phase{Kind: PhaseQualityGate}
	return s.CheckInvariants()
}

// BeginExecution moves into executing_agents with the given expected agents.
// Entry is legal from guardrail (gates disabled or no checkpoint) or from
// quality_gate.
func (s *State) BeginExecution(agents []string) error {
	if s.Phase.Kind != PhaseGuardrail && s.Phase.Kind != PhaseQualityGate {
		return fmt.Errorf("begin execution from %s", s.Phase.Kind)
	}
	if len(agents) == 0 {
		return fmt.Errorf("begin execution with no agents")
	}
	s.Phase = Phase{
		Kind:      PhaseExecutingAgents,
		Expected:  append([]string(nil), agents...),
		Completed: make(map[string]bool),
	}
	return s.CheckInvariants()
}

// AgentCompleted marks one expected agent done. It returns true when every
// expected agent has reported.
func (s *State) AgentCompleted(agent string) (bool, error) {
	if s.Phase.Kind != PhaseExecutingAgents {
		return false, fmt.Errorf("agent completion in %s", s.Phase.Kind)
	}
	found := false
	for _, a := range s.Phase.Expected {
		if a == agent {
			found = true
			break
		}
	}
	if !found {
		return false, fmt.Errorf("unexpected agent %q completed", agent)
	}
	s.Phase.Completed[agent] = true
	return len(s.Phase.Completed) == len(s.Phase.Expected), nil
}

// BeginPersist moves executing_agents -> persisting.
func (s *State) BeginPersist() error {
	if s.Phase.Kind != PhaseExecutingAgents {
		return fmt.Errorf("begin persist from %s", s.Phase.Kind)
	}
	s.Phase = Phase{Kind: PhasePersisting}
	return s.CheckInvariants()
}

// Advance completes the current stage after persistence and either enters the
// guardrail phase of the next stage or finishes the run. current_index only
// ever moves here, and only forward.
func (s *State) Advance() error {
	if s.Phase.Kind != PhasePersisting && s.Phase.Kind != PhaseReflectCurate {
		return fmt.Errorf("advance from %s", s.Phase.Kind)
	}
	s.CurrentIndex++
	if s.CurrentIndex >= len(s.Stages) {
		s.Phase = Phase{Kind: PhaseDone}
	} else {
		s.Phase = Phase{Kind: PhaseGuardrail}
	}
	return s.CheckInvariants()
}

// Fail moves the run to failed from any phase, preserving partial artifacts.
func (s *State) Fail() {
	s.Phase = Phase{Kind: PhaseFailed}
	if s.CurrentIndex > len(s.Stages) {
		s.CurrentIndex = len(s.Stages)
	}
}

// CheckpointFor returns the quality checkpoint that fires before the given
// stage, if any. The first entry wins: a checkpoint already in
// CompletedCheckpoints never fires again within a run.
func (s *State) CheckpointFor(stage spec.Stage) (Checkpoint, bool) {
	if !s.QualityGatesEnabled {
		return "", false
	}
	var cp Checkpoint
	switch stage {
	case spec.StagePlan:
		cp = CheckpointBeforeSpecify
	case spec.StageTasks:
		cp = CheckpointAfterSpecify
	case spec.StageImplement:
		cp = CheckpointAfterTasks
	default:
		return "", false
	}
	if s.CompletedCheckpoints[cp] {
		return "", false
	}
	return cp, true
}

// CompleteCheckpoint records a checkpoint so it fires at most once per run.
func (s *State) CompleteCheckpoint(cp Checkpoint) {
	s.CompletedCheckpoints[cp] = true
}

// EligibleForReflect reports whether the finished stage should trigger the
// playbook reflect+curate cycle. Difficulty is positional: implement and
// later stages exceed the default threshold.
func (s *State) EligibleForReflect(stage spec.Stage) bool {
	threshold := s.Config.ReflectThreshold
	if threshold <= 0 {
		threshold = spec.StageImplement.Index()
	}
	return stage.Index() >= threshold
}
