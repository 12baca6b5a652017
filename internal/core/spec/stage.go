package spec

// Stage is one step of the spec-kit pipeline.
type Stage string

const (
	// Main six-stage pipeline, in order.
	StagePlan      Stage = "plan"
	StageTasks     Stage = "tasks"
	StageImplement Stage = "implement"
	StageValidate  Stage = "validate"
	StageAudit     Stage = "audit"
	StageUnlock    Stage = "unlock"

	// Quality commands. Never part of the main sequence; invoked only by
	// quality gates.
	StageClarify   Stage = "clarify"
	StageAnalyze   Stage = "analyze"
	StageChecklist Stage = "checklist"
)

// PipelineStages returns the main pipeline in its fixed order.
func PipelineStages() []Stage {
	return []Stage{StagePlan, StageTasks, StageImplement, StageValidate, StageAudit, StageUnlock}
}

// IsQuality reports whether the stage is a quality command rather than a
// pipeline step.
func (s Stage) IsQuality() bool {
	return s == StageClarify || s == StageAnalyze || s == StageChecklist
}

// Index returns the stage's position in the main pipeline, or -1 for quality
// commands and unknown values.
func (s Stage) Index() int {
	for i, st := range PipelineStages() {
		if st == s {
			return i
		}
	}
	return -1
}

// CommandName returns the slash-command name for the stage.
func (s Stage) CommandName() string {
	return "speckit." + string(s)
}

// DisplayName returns the capitalized human-readable stage name.
func (s Stage) DisplayName() string {
	switch s {
	case StagePlan:
		return "Plan"
	case StageTasks:
		return "Tasks"
	case StageImplement:
		return "Implement"
	case StageValidate:
		return "Validate"
	case StageAudit:
		return "Audit"
	case StageUnlock:
		return "Unlock"
	case StageClarify:
		return "Clarify"
	case StageAnalyze:
		return "Analyze"
	case StageChecklist:
		return "Checklist"
	}
	return string(s)
}

// ParseStage maps a stage or command name back to a Stage.
func ParseStage(name string) (Stage, bool) {
	trimmed := name
	if len(name) > len("speckit.") && name[:len("speckit.")] == "speckit." {
		trimmed = name[len("speckit."):]
	}
	switch Stage(trimmed) {
	case StagePlan, StageTasks, StageImplement, StageValidate, StageAudit,
		StageUnlock, StageClarify, StageAnalyze, StageChecklist:
		return Stage(trimmed), true
	}
	return "", false
}

// ArtifactFile returns the markdown projection filename a completed stage
// writes into the SPEC directory.
func (s Stage) ArtifactFile() string {
	return string(s) + ".md"
}

// Precondition returns the projection file that must exist before the stage
// may run, or "" when the stage has none beyond spec.md.
func (s Stage) Precondition() string {
	switch s {
	case StageTasks:
		return StagePlan.ArtifactFile()
	case StageImplement:
		return StageTasks.ArtifactFile()
	case StageValidate:
		return StageImplement.ArtifactFile()
	case StageAudit:
		return StageValidate.ArtifactFile()
	case StageUnlock:
		return StageAudit.ArtifactFile()
	}
	return ""
}
