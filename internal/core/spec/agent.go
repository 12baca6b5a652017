package spec

// Agent identifies a configured external model.
type Agent string

const (
	AgentGptPro   Agent = "gpt_pro"
	AgentGptCodex Agent = "gpt_codex"
	AgentGemini   Agent = "gemini"
	AgentClaude   Agent = "claude"
)

// Agents returns all known agents.
func Agents() []Agent {
	return []Agent{AgentGptPro, AgentGptCodex, AgentGemini, AgentClaude}
}

// Known reports whether the agent identifier is one of the configured set.
func Known(a Agent) bool {
	for _, k := range Agents() {
		if k == a {
			return true
		}
	}
	return false
}

// defaultStageAgents is the preferred agent per stage when no override is
// configured for the repository.
var defaultStageAgents = map[Stage]Agent{
	StagePlan:      AgentGptPro,
	StageTasks:     AgentGptCodex,
	StageImplement: AgentClaude,
	StageValidate:  AgentGemini,
	StageAudit:     AgentGptPro,
	StageUnlock:    AgentClaude,
	StageClarify:   AgentGemini,
	StageAnalyze:   AgentGptPro,
	StageChecklist: AgentGptCodex,
}

// AgentFor resolves the agent for a stage. Overrides is the per-repo table
// keyed by stage name; unknown override values fall back to the default.
func AgentFor(stage Stage, overrides map[string]string) Agent {
	if raw, ok := overrides[string(stage)]; ok {
		if a := Agent(raw); Known(a) {
			return a
		}
	}
	if a, ok := defaultStageAgents[stage]; ok {
		return a
	}
	return AgentClaude
}
