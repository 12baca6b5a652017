package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/speckit/internal/core/artifact"
	"github.com/example/speckit/internal/core/quality"
	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
)

// RunnerResolver selects the concrete agent runner for an agent.
type RunnerResolver interface {
	Resolve(agent spec.Agent) (secondary.AgentRunner, error)
}

// QualityServiceImpl implements the QualityService interface. Gate questions
// come from running the gate's quality agent and parsing its structured
// output; escalated gates park their questions until the operator answers.
type QualityServiceImpl struct {
	assembler *AssemblerService
	executor  *ExecutorService
	runners   RunnerResolver
	capsule   secondary.CapsuleStore
	logger    secondary.RunLogger
	models    map[string]string
	timeout   time.Duration

	mu      sync.Mutex
	pending map[string][]quality.Question // specID+gate -> escalated questions
}

// NewQualityService creates a QualityService with injected dependencies.
func NewQualityService(
	assembler *AssemblerService,
	executor *ExecutorService,
	runners RunnerResolver,
	capsule secondary.CapsuleStore,
	logger secondary.RunLogger,
	models map[string]string,
	timeout time.Duration,
) *QualityServiceImpl {
	return &QualityServiceImpl{
		assembler: assembler,
		executor:  executor,
		runners:   runners,
		capsule:   capsule,
		logger:    logger,
		models:    models,
		timeout:   timeout,
		pending:   make(map[string][]quality.Question),
	}
}

// RunGate executes one named quality gate for a spec as a standalone command.
func (s *QualityServiceImpl) RunGate(ctx context.Context, req primary.RunGateRequest) (*primary.GateResult, error) {
	return s.RunGateForRun(ctx, req.SpecID, uuid.NewString(), string(req.Gate), quality.Gate(req.Gate))
}

// RunGateForRun executes a gate inside an existing run. The orchestrator
// calls this at checkpoints.
func (s *QualityServiceImpl) RunGateForRun(ctx context.Context, specID, runID, checkpoint string, gate quality.Gate) (*primary.GateResult, error) {
	stage := gate.Stage()
	if stage == "" {
		return nil, fmt.Errorf("unknown quality gate %q", gate)
	}
	started := time.Now()

	agentID := spec.AgentFor(stage, nil)
	runner, err := s.runners.Resolve(agentID)
	if err != nil {
		return nil, fmt.Errorf("no runner for gate agent %s: %w", agentID, err)
	}

	assembled, err := s.assembler.Assemble(ctx, AssembleRequest{
		SpecID: specID,
		RunID:  runID,
		Stage:  stage,
		Agent:  agentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble gate prompt: %w", err)
	}

	outcome := quality.PassOutcome()
	exec, err := s.executor.Execute(ctx, runner, secondary.AgentRequest{
		Agent:   string(agentID),
		Model:   s.models[string(agentID)],
		Prompt:  assembled.Prompt,
		Stage:   string(stage),
		SpecID:  specID,
		Timeout: s.timeout,
	})
	if err != nil {
		outcome = quality.FailOutcome(fmt.Sprintf("gate agent %s failed: %v", agentID, err))
	} else {
		questions := s.parseQuestions(ctx, gate, exec.Result.Content)
		outcome = quality.Classify(questions)
	}

	decisionURI, err := s.persistDecision(ctx, specID, runID, checkpoint, gate, outcome, nil, time.Since(started))
	if err != nil {
		return nil, err
	}

	if outcome.Kind == quality.Escalate {
		s.mu.Lock()
		s.pending[pendingKey(specID, gate)] = outcome.Questions
		s.mu.Unlock()
	}

	return gateResult(specID, gate, outcome, decisionURI), nil
}

// SubmitAnswers resolves an escalated gate with operator answers.
func (s *QualityServiceImpl) SubmitAnswers(ctx context.Context, req primary.SubmitAnswersRequest) (*primary.GateResult, error) {
	gate := quality.Gate(req.Gate)
	key := pendingKey(req.SpecID, gate)

	s.mu.Lock()
	questions, ok := s.pending[key]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no escalated %s gate pending for %s", req.Gate, req.SpecID)
	}

	var outcome quality.Outcome
	if req.Cancel {
		outcome = quality.FailOutcome("operator cancelled the gate")
	} else {
		if err := quality.ValidateAnswers(questions, req.Answers); err != nil {
			return nil, fmt.Errorf("incomplete answers: %w", err)
		}
		outcome = quality.Outcome{Kind: quality.Pass, Questions: questions}
	}

	decisionURI, err := s.persistDecision(ctx, req.SpecID, uuid.NewString(), "", gate, outcome, req.Answers, 0)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()

	return gateResult(req.SpecID, gate, outcome, decisionURI), nil
}

// parseQuestions extracts the gate's question list from the agent transcript.
// A transcript without a parseable question block passes clean.
func (s *QualityServiceImpl) parseQuestions(ctx context.Context, gate quality.Gate, content string) []quality.Question {
	payload := extractJSONObject(content)
	if payload == "" {
		return nil
	}
	var envelope struct {
		Questions []struct {
			ID               string   `json:"id"`
			Magnitude        string   `json:"magnitude"`
			Question         string   `json:"question"`
			Context          string   `json:"context"`
			AgentAnswers     []string `json:"agent_answers"`
			Gpt5Reasoning    string   `json:"gpt5_reasoning"`
			SuggestedOptions []string `json:"suggested_options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		s.logger.LogWarn(ctx, fmt.Sprintf("%s gate output was not parseable, passing clean: %v", gate, err))
		return nil
	}
	questions := make([]quality.Question, 0, len(envelope.Questions))
	for i, q := range envelope.Questions {
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", gate, i+1)
		}
		magnitude := quality.Magnitude(strings.ToLower(q.Magnitude))
		switch magnitude {
		case quality.MagnitudeCritical, quality.MagnitudeImportant, quality.MagnitudeMinor:
		default:
			magnitude = quality.MagnitudeMinor
		}
		questions = append(questions, quality.Question{
			ID:               id,
			Magnitude:        magnitude,
			Question:         q.Question,
			Context:          q.Context,
			AgentAnswers:     q.AgentAnswers,
			Gpt5Reasoning:    q.Gpt5Reasoning,
			SuggestedOptions: q.SuggestedOptions,
		})
	}
	return questions
}

func (s *QualityServiceImpl) persistDecision(ctx context.Context, specID, runID, checkpoint string, gate quality.Gate, outcome quality.Outcome, answers map[string]string, elapsed time.Duration) (string, error) {
	decision := artifact.QualityGateDecision{
		SchemaVersion: artifact.SchemaQualityGateDecision,
		SpecID:        specID,
		RunID:         runID,
		Checkpoint:    checkpoint,
		Gate:          string(gate),
		Outcome:       string(outcome.Kind),
		Questions:     toArtifactQuestions(outcome.Questions),
		Answers:       answers,
		ElapsedMs:     elapsed.Milliseconds(),
	}
	canonical, err := artifact.Canonicalize(decision)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize gate decision: %w", err)
	}
	uri, err := s.capsule.Put(ctx, canonical)
	if err != nil {
		return "", fmt.Errorf("failed to persist gate decision: %w", err)
	}
	if _, err := s.capsule.EmitEvent(ctx, specID, runID, "QualityGateDecided", &secondary.CapsuleEventPayload{
		URI:    uri,
		Schema: decision.SchemaVersion,
		Label:  string(gate),
		Meta:   map[string]string{"outcome": string(outcome.Kind)},
	}); err != nil {
		return "", fmt.Errorf("failed to record gate event: %w", err)
	}
	return uri, nil
}

func toArtifactQuestions(questions []quality.Question) []artifact.QualityQuestion {
	out := make([]artifact.QualityQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, artifact.QualityQuestion{
			ID:               q.ID,
			Magnitude:        string(q.Magnitude),
			Question:         q.Question,
			Context:          q.Context,
			AgentAnswers:     q.AgentAnswers,
			Gpt5Reasoning:    q.Gpt5Reasoning,
			SuggestedOptions: q.SuggestedOptions,
		})
	}
	return out
}

func gateResult(specID string, gate quality.Gate, outcome quality.Outcome, decisionURI string) *primary.GateResult {
	result := &primary.GateResult{
		SpecID:      specID,
		Gate:        string(gate),
		Outcome:     string(outcome.Kind),
		Reason:      outcome.Reason,
		DecisionURI: decisionURI,
	}
	for _, q := range outcome.Questions {
		result.Questions = append(result.Questions, primary.GateQuestion{
			ID:               q.ID,
			Magnitude:        string(q.Magnitude),
			Question:         q.Question,
			Context:          q.Context,
			SuggestedOptions: q.SuggestedOptions,
		})
	}
	return result
}

func pendingKey(specID string, gate quality.Gate) string {
	return specID + "/" + string(gate)
}

// extractJSONObject returns the first balanced top-level JSON object in the
// text, tolerating markdown fences and surrounding prose.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

var _ primary.QualityService = (*QualityServiceImpl)(nil)
