package artifact

// The concrete artifact kinds the pipeline persists. schema_version is the
// first declared field of every struct so it leads each canonical line.

// IntakeAnswers holds the validated questionnaire answers for a SPEC or
// project intake.
type IntakeAnswers struct {
	SchemaVersion      string   `json:"schema_version"`
	SpecID             string   `json:"spec_id,omitempty"`
	Problem            string   `json:"problem"`
	Users              []string `json:"users"`
	Goals              []string `json:"goals"`
	NonGoals           []string `json:"non_goals"`
	Constraints        []string `json:"constraints"`
	IntegrationPoints  []string `json:"integration_points"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

func (a IntakeAnswers) Schema() string { return a.SchemaVersion }

// DesignBrief is the distilled design contract produced from SPEC intake.
type DesignBrief struct {
	SchemaVersion string   `json:"schema_version"`
	SpecID        string   `json:"spec_id"`
	Title         string   `json:"title"`
	Problem       string   `json:"problem"`
	Outcome       string   `json:"outcome"`
	Scope         []string `json:"scope"`
	OutOfScope    []string `json:"out_of_scope"`
	Acceptance    []string `json:"acceptance"`
	AnswersURI    string   `json:"answers_uri"`
}

func (a DesignBrief) Schema() string { return a.SchemaVersion }

// ProjectBrief is the project-level counterpart of DesignBrief.
type ProjectBrief struct {
	SchemaVersion string   `json:"schema_version"`
	ProjectName   string   `json:"project_name"`
	Vision        string   `json:"vision"`
	Goals         []string `json:"goals"`
	Constraints   []string `json:"constraints"`
	AnswersURI    string   `json:"answers_uri"`
}

func (a ProjectBrief) Schema() string { return a.SchemaVersion }

// PromptBundle captures the fully rendered prompt handed to an agent.
type PromptBundle struct {
	SchemaVersion   string            `json:"schema_version"`
	SpecID          string            `json:"spec_id"`
	Stage           string            `json:"stage"`
	Agent           string            `json:"agent"`
	TemplateVersion string            `json:"template_version"`
	Prompt          string            `json:"prompt"`
	Variables       map[string]string `json:"variables"`
	AceBulletIDs    []string          `json:"ace_bullet_ids"`
}

func (a PromptBundle) Schema() string { return a.SchemaVersion }

// AgentOutput is the captured transcript plus metadata of one agent run.
type AgentOutput struct {
	SchemaVersion string `json:"schema_version"`
	SpecID        string `json:"spec_id"`
	RunID         string `json:"run_id"`
	Stage         string `json:"stage"`
	Agent         string `json:"agent"`
	Model         string `json:"model"`
	Content       string `json:"content"`
	InputTokens   int    `json:"input_tokens"`
	OutputTokens  int    `json:"output_tokens"`
	DurationMs    int64  `json:"duration_ms"`
}

func (a AgentOutput) Schema() string { return a.SchemaVersion }

// RoutingDecision records the reflex-vs-cloud choice for the Implement stage.
type RoutingDecision struct {
	SchemaVersion  string `json:"schema_version"`
	SpecID         string `json:"spec_id"`
	RunID          string `json:"run_id"`
	Stage          string `json:"stage"`
	Mode           string `json:"mode"`
	Role           string `json:"role"`
	SelectedAgent  string `json:"selected_agent"`
	IsFallback     bool   `json:"is_fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	HealthLatency  int64  `json:"health_latency_ms"`
}

func (a RoutingDecision) Schema() string { return a.SchemaVersion }

// AceIntakeFrame is the deterministic explainability frame derived from a
// brief. No model is involved; fields must stay truthful and conservative.
type AceIntakeFrame struct {
	SchemaVersion string   `json:"schema_version"`
	SpecID        string   `json:"spec_id,omitempty"`
	Source        string   `json:"source"`
	Outcome       string   `json:"outcome"`
	Scope         []string `json:"scope"`
	Risks         []string `json:"risks"`
	OpenQuestions []string `json:"open_questions"`
	BriefURI      string   `json:"brief_uri"`
	AnswersURI    string   `json:"answers_uri"`
}

func (a AceIntakeFrame) Schema() string { return a.SchemaVersion }

// AceMilestoneFrame explains a stage-completion decision.
type AceMilestoneFrame struct {
	SchemaVersion string `json:"schema_version"`
	SpecID        string `json:"spec_id"`
	RunID         string `json:"run_id"`
	Stage         string `json:"stage"`
	Decision      string `json:"decision"`
	Evidence      string `json:"evidence"`
	OutcomeURI    string `json:"outcome_uri"`
}

func (a AceMilestoneFrame) Schema() string { return a.SchemaVersion }

// QualityQuestion is one escalated question inside a gate decision.
type QualityQuestion struct {
	ID               string   `json:"id"`
	Magnitude        string   `json:"magnitude"`
	Question         string   `json:"question"`
	Context          string   `json:"context"`
	AgentAnswers     []string `json:"agent_answers"`
	Gpt5Reasoning    string   `json:"gpt5_reasoning,omitempty"`
	SuggestedOptions []string `json:"suggested_options"`
}

// QualityGateDecision captures a checkpoint outcome including any operator
// answers.
type QualityGateDecision struct {
	SchemaVersion string            `json:"schema_version"`
	SpecID        string            `json:"spec_id"`
	RunID         string            `json:"run_id"`
	Checkpoint    string            `json:"checkpoint"`
	Gate          string            `json:"gate"`
	Outcome       string            `json:"outcome"`
	Questions     []QualityQuestion `json:"questions"`
	Answers       map[string]string `json:"answers"`
	ElapsedMs     int64             `json:"elapsed_ms"`
}

func (a QualityGateDecision) Schema() string { return a.SchemaVersion }

// StageOutcome summarizes one completed (or failed) pipeline stage.
type StageOutcome struct {
	SchemaVersion string `json:"schema_version"`
	SpecID        string `json:"spec_id"`
	RunID         string `json:"run_id"`
	Stage         string `json:"stage"`
	Success       bool   `json:"success"`
	Degraded      bool   `json:"degraded"`
	Summary       string `json:"summary"`
	TelemetryURI  string `json:"telemetry_uri,omitempty"`
}

func (a StageOutcome) Schema() string { return a.SchemaVersion }

// MaieuticSpec is the delegation contract produced by intake clarification.
// Its presence in the evidence directory is a ship-gate requirement.
type MaieuticSpec struct {
	SchemaVersion string            `json:"schema_version"`
	SpecID        string            `json:"spec_id"`
	RunID         string            `json:"run_id"`
	Questions     map[string]string `json:"questions"`
	Confirmed     bool              `json:"confirmed"`
}

func (a MaieuticSpec) Schema() string { return a.SchemaVersion }
