package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/speckit/internal/config"
	"github.com/example/speckit/internal/core/artifact"
	"github.com/example/speckit/internal/core/quality"
	"github.com/example/speckit/internal/core/routing"
	"github.com/example/speckit/internal/core/run"
	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/guardrail"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
)

// Orchestrator implements the PipelineService interface: the per-run state
// machine driving guardrail, gates, prompt, routing, execution, persistence
// and advancement for each stage.
type Orchestrator struct {
	guard      *guardrail.Guardrail
	qualitySvc *QualityServiceImpl
	assembler  *AssemblerService
	executor   *ExecutorService
	runners    RunnerResolver
	reflexRun  secondary.AgentRunner
	probe      secondary.ReflexProbe
	capsule    secondary.CapsuleStore
	runs       secondary.ConsensusRunRepository
	outputs    secondary.AgentOutputRepository
	workspace  secondary.WorkspaceAdapter
	ace        primary.PlaybookService
	hal        secondary.HalAdapter
	logger     secondary.RunLogger
	configFn   func() *config.Config

	mu     sync.Mutex
	active map[string]context.CancelFunc
	busy   int
}

// NewOrchestrator creates the pipeline orchestrator. reflexRun, probe, ace
// and hal may be nil when the matching feature is disabled.
func NewOrchestrator(
	guard *guardrail.Guardrail,
	qualitySvc *QualityServiceImpl,
	assembler *AssemblerService,
	executor *ExecutorService,
	runners RunnerResolver,
	reflexRun secondary.AgentRunner,
	probe secondary.ReflexProbe,
	capsule secondary.CapsuleStore,
	runs secondary.ConsensusRunRepository,
	outputs secondary.AgentOutputRepository,
	workspace secondary.WorkspaceAdapter,
	ace primary.PlaybookService,
	hal secondary.HalAdapter,
	logger secondary.RunLogger,
	configFn func() *config.Config,
) *Orchestrator {
	return &Orchestrator{
		guard:      guard,
		qualitySvc: qualitySvc,
		assembler:  assembler,
		executor:   executor,
		runners:    runners,
		reflexRun:  reflexRun,
		probe:      probe,
		capsule:    capsule,
		runs:       runs,
		outputs:    outputs,
		workspace:  workspace,
		ace:        ace,
		hal:        hal,
		logger:     logger,
		configFn:   configFn,
		active:     make(map[string]context.CancelFunc),
	}
}

// Busy reports whether any run is executing. The config watcher defers
// reloads while this holds.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy > 0
}

// frozenConfig snapshots the live config into the per-run policy. Reload
// never touches a run in flight.
func (o *Orchestrator) frozenConfig(cfg *config.Config) run.PipelineConfig {
	threshold := spec.Stage(cfg.Ace.ReflectThreshold).Index()
	degradedAfter := 0
	if cfg.Pipeline.DegradedAfterRetries {
		degradedAfter = 1
	}
	return run.PipelineConfig{
		QualityGatesEnabled:  cfg.Pipeline.QualityGates,
		CaptureMode:          run.CaptureMode(cfg.Pipeline.CaptureMode),
		ReflexEnabled:        cfg.Reflex.Enabled,
		ReflexEndpoint:       cfg.Reflex.Endpoint,
		ReflectThreshold:     threshold,
		DegradedAfterRetries: degradedAfter,
		StageTimeoutSeconds:  cfg.Pipeline.StageTimeoutSeconds,
		AgentOverrides:       cfg.Agents.Overrides,
		SliceSize:            cfg.Ace.SliceSize,
	}
}

// RunStage executes a single stage for a spec.
func (o *Orchestrator) RunStage(ctx context.Context, req primary.RunStageRequest) (*primary.StageResult, error) {
	specID, err := spec.ParseID(req.SpecID)
	if err != nil {
		return nil, err
	}
	if req.Stage.Index() < 0 && !req.Stage.IsQuality() {
		return nil, fmt.Errorf("unknown stage %q", req.Stage)
	}
	cfg := o.configFn()
	state := run.New(specID, "", uuid.NewString(), o.frozenConfig(cfg), req.HalMode)
	state.CurrentIndex = req.Stage.Index()
	// Single-stage invocations re-check their own checkpoint only.
	for _, st := range spec.PipelineStages() {
		if st.Index() < req.Stage.Index() {
			if cp, ok := state.CheckpointFor(st); ok {
				state.CompleteCheckpoint(cp)
			}
		}
	}

	ctx, done := o.begin(req.SpecID, ctx)
	defer done()

	result, err := o.runStage(ctx, state, req.Stage, req.AgentOverride)
	if err != nil {
		state.Fail()
		o.writeRunLog(ctx, state, time.Time{}, err.Error())
		return nil, err
	}
	return result, nil
}

// RunAuto executes all remaining stages in order, resuming from persisted
// audit state when present.
func (o *Orchestrator) RunAuto(ctx context.Context, req primary.RunAutoRequest) (*primary.AutoResult, error) {
	specID, err := spec.ParseID(req.SpecID)
	if err != nil {
		return nil, err
	}
	cfg := o.configFn()

	completed, err := o.completedStages(ctx, req.SpecID)
	if err != nil {
		return nil, fmt.Errorf("failed to read prior progress: %w", err)
	}
	state, err := run.Resume(specID, "", uuid.NewString(), o.frozenConfig(cfg), completed)
	if err != nil {
		return nil, err
	}
	state.Hal = req.HalMode
	if req.FromStage != "" {
		if req.FromStage.Index() < 0 {
			return nil, fmt.Errorf("cannot start auto run at %q", req.FromStage)
		}
		if req.FromStage.Index() > state.CurrentIndex {
			return nil, fmt.Errorf("cannot start at %s: stage %s incomplete", req.FromStage, state.Stages[state.CurrentIndex])
		}
		state.CurrentIndex = req.FromStage.Index()
		state.Phase = run.Phase{Kind: run.PhaseGuardrail}
	}

	ctx, done := o.begin(req.SpecID, ctx)
	defer done()

	if state.Hal == run.HalLive && o.hal != nil {
		// EvidenceDir resolves the slugged spec directory and creates it,
		// so the monitor tails the file the run log will land in.
		evidenceDir, dirErr := o.workspace.EvidenceDir(ctx, req.SpecID)
		if dirErr != nil {
			evidenceDir = filepath.Join("docs", req.SpecID, "evidence")
		}
		monitorCmd := fmt.Sprintf("tail -f %s", filepath.Join(evidenceDir, "bot_run_log.json"))
		if err := o.hal.CreateRunSession(ctx, req.SpecID, o.workspace.Root(), monitorCmd); err != nil {
			o.logger.LogWarn(ctx, fmt.Sprintf("hal session failed: %v", err))
		} else {
			defer o.hal.KillRunSession(context.Background(), req.SpecID)
		}
	}

	started := time.Now()
	auto := &primary.AutoResult{SpecID: req.SpecID, RunID: state.RunID}
	for {
		stage, ok := state.CurrentStage()
		if !ok {
			break
		}
		result, err := o.runStage(ctx, state, stage, "")
		if err != nil {
			state.Fail()
			auto.Failed = true
			auto.FailedAt = stage
			auto.Reason = err.Error()
			o.writeRunLog(ctx, state, started, err.Error())
			return auto, nil
		}
		auto.Stages = append(auto.Stages, result)
		if result.NeedsInput || result.BlockedReason != "" {
			o.writeRunLog(ctx, state, started, "")
			return auto, nil
		}
	}
	auto.Done = state.Phase.Kind == run.PhaseDone
	o.writeRunLog(ctx, state, started, "")
	return auto, nil
}

// Cancel marks the in-flight run for a spec as failed, preserving partial
// artifacts.
func (o *Orchestrator) Cancel(ctx context.Context, specID string) error {
	o.mu.Lock()
	cancel, ok := o.active[specID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("no active run for %s", specID)
	}
	cancel()
	return nil
}

// runStage drives one stage through the full phase sequence.
func (o *Orchestrator) runStage(ctx context.Context, state *run.State, stage spec.Stage, agentOverride string) (*primary.StageResult, error) {
	result := &primary.StageResult{
		SpecID: state.SpecID.String(),
		RunID:  state.RunID,
		Stage:  stage,
	}

	// Guardrail.
	tel, err := o.guard.Run(ctx, stage.CommandName(), state.SpecID.String(), state.RunID, stage)
	if err != nil {
		return nil, fmt.Errorf("guardrail telemetry failed: %w", err)
	}
	if !tel.Success {
		return nil, fmt.Errorf("guardrail failed for %s: %v", stage, tel.Errors)
	}
	o.logger.LogStage(ctx, state.SpecID.String(), string(stage), "guardrail passed")

	// Quality gate.
	if cp, ok := state.CheckpointFor(stage); ok {
		if err := state.BeginQualityGate(); err != nil {
			return nil, err
		}
		gates, err := quality.GatesFor(string(cp))
		if err != nil {
			return nil, err
		}
		for _, gate := range gates {
			gateResult, err := o.qualitySvc.RunGateForRun(ctx, state.SpecID.String(), state.RunID, string(cp), gate)
			if err != nil {
				return nil, fmt.Errorf("quality gate %s failed: %w", gate, err)
			}
			switch quality.OutcomeKind(gateResult.Outcome) {
			case quality.Escalate:
				result.NeedsInput = true
				result.Questions = gateResult.Questions
				return result, nil
			case quality.Fail:
				return nil, fmt.Errorf("quality gate %s aborted the run: %s", gate, gateResult.Reason)
			}
		}
		state.CompleteCheckpoint(cp)
	}

	// Agent selection plus the implement-only routing decision.
	agentID := o.selectAgent(state, stage, agentOverride)
	runner, err := o.runners.Resolve(agentID)
	if err != nil {
		return nil, fmt.Errorf("no runner for agent %s: %w", agentID, err)
	}
	if stage == spec.StageImplement {
		decision, routedRunner, err := o.routeImplement(ctx, state, agentID)
		if err != nil {
			return nil, err
		}
		if routedRunner != nil {
			runner = routedRunner
		}
		agentID = decision.SelectedAgent
	}
	if state.Hal == run.HalMock {
		runner = &cannedRunner{agent: agentID}
	}
	result.Agent = agentID

	if err := state.BeginExecution([]string{string(agentID)}); err != nil {
		return nil, err
	}

	// Prompt.
	cfg := o.configFn()
	assembled, err := o.assembler.Assemble(ctx, AssembleRequest{
		SpecID:    state.SpecID.String(),
		RunID:     state.RunID,
		Stage:     stage,
		Agent:     agentID,
		AceOn:     cfg.Ace.Enabled,
		SliceSize: state.Config.SliceSize,
	})
	if err != nil {
		return nil, fmt.Errorf("prompt assembly failed: %w", err)
	}

	// Execute.
	timeout := time.Duration(state.Config.StageTimeoutSeconds) * time.Second
	exec, err := o.executor.Execute(ctx, runner, secondary.AgentRequest{
		Agent:   string(agentID),
		Model:   cfg.Agents.Models[string(agentID)],
		Prompt:  assembled.Prompt,
		Stage:   string(stage),
		SpecID:  state.SpecID.String(),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if _, err := state.AgentCompleted(string(agentID)); err != nil {
		return nil, err
	}
	result.Attempts = exec.Attempts
	result.Degraded = exec.Degraded && cfg.Pipeline.DegradedAfterRetries
	result.TokensIn = exec.Result.TokensIn
	result.TokensOut = exec.Result.TokensOut
	result.DurationMs = exec.Result.Duration.Milliseconds()

	// Persist.
	if err := state.BeginPersist(); err != nil {
		return nil, err
	}
	if err := o.persistStage(ctx, state, stage, agentID, exec, assembled, result); err != nil {
		return nil, err
	}

	// Ship gate guards unlock's final completion.
	if stage == spec.StageUnlock {
		verdict, err := NewShipGate(o.workspace).Validate(ctx, state.SpecID.String(), state.Config.CaptureMode)
		if err != nil {
			return nil, err
		}
		if !verdict.Allowed() {
			result.BlockedReason = verdict.Message
			return result, nil
		}
	}

	// Advance plus fire-and-forget learning.
	if state.EligibleForReflect(stage) && o.ace != nil {
		signals := classifyExecution(exec.Result.Content, exec.Result.Stderr)
		go o.ace.ReflectCurate(context.WithoutCancel(ctx), primary.ReflectRequest{
			SpecID:        state.SpecID.String(),
			Stage:         string(stage),
			Transcript:    exec.Result.Content,
			UsedBulletIDs: assembled.AceBulletIDs,
			CompileOK:     signals.CompileOK,
			TestsPassed:   signals.TestsPassed,
			FailingTests:  signals.FailingTests,
			LintCount:     signals.LintCount,
		})
	}
	if err := state.Advance(); err != nil {
		return nil, err
	}

	result.Success = true
	o.logger.LogStage(ctx, state.SpecID.String(), string(stage), "stage complete")
	return result, nil
}

func (o *Orchestrator) selectAgent(state *run.State, stage spec.Stage, override string) spec.Agent {
	if override != "" {
		if a := spec.Agent(override); spec.Known(a) {
			return a
		}
	}
	return spec.AgentFor(stage, state.Config.AgentOverrides)
}

// routeImplement consults the reflex policy and always records a
// RoutingDecision, fallback or not.
func (o *Orchestrator) routeImplement(ctx context.Context, state *run.State, cloudAgent spec.Agent) (routing.Decision, secondary.AgentRunner, error) {
	health := routing.Health{}
	cfg := o.configFn()
	if state.Config.ReflexEnabled && o.probe != nil {
		probed, err := o.probe.Check(ctx, cfg.Reflex.Model)
		if err != nil {
			health.Detail = err.Error()
		} else {
			health = routing.Health{
				Reachable:      probed.Reachable,
				ModelAvailable: probed.ModelAvailable,
				Latency:        probed.Latency,
				Detail:         probed.Detail,
			}
		}
	}
	decision := routing.Decide(routing.Policy{
		ReflexEnabled: state.Config.ReflexEnabled,
		ReflexModel:   cfg.Reflex.Model,
		CloudAgent:    cloudAgent,
	}, health)

	record := artifact.RoutingDecision{
		SchemaVersion:  artifact.SchemaRoutingDecision,
		SpecID:         state.SpecID.String(),
		RunID:          state.RunID,
		Stage:          string(spec.StageImplement),
		Mode:           string(decision.Mode),
		Role:           "implementer",
		SelectedAgent:  string(decision.SelectedAgent),
		IsFallback:     decision.IsFallback,
		FallbackReason: decision.FallbackReason,
		HealthLatency:  decision.HealthLatency.Milliseconds(),
	}
	canonical, err := artifact.Canonicalize(record)
	if err != nil {
		return decision, nil, err
	}
	uri, err := o.capsule.Put(ctx, canonical)
	if err != nil {
		return decision, nil, fmt.Errorf("failed to persist routing decision: %w", err)
	}
	if _, err := o.capsule.EmitEvent(ctx, state.SpecID.String(), state.RunID, "RoutingDecision", &secondary.CapsuleEventPayload{
		Stage:  string(spec.StageImplement),
		URI:    uri,
		Schema: record.SchemaVersion,
		Meta:   map[string]string{"mode": string(decision.Mode)},
	}); err != nil {
		return decision, nil, fmt.Errorf("failed to record routing event: %w", err)
	}

	if decision.Mode == routing.ModeReflex && o.reflexRun != nil {
		return decision, o.reflexRun, nil
	}
	return decision, nil, nil
}

// persistStage writes the capsule artifacts, audit rows, projections and
// evidence files for a completed stage.
func (o *Orchestrator) persistStage(ctx context.Context, state *run.State, stage spec.Stage, agentID spec.Agent, exec *ExecutionResult, assembled *AssembledPrompt, result *primary.StageResult) error {
	specID := state.SpecID.String()

	content := exec.Result.Content
	captured := content
	if state.Config.CaptureMode != run.CaptureFullIO {
		captured = ""
	}
	output := artifact.AgentOutput{
		SchemaVersion: artifact.SchemaAgentOutput,
		SpecID:        specID,
		RunID:         state.RunID,
		Stage:         string(stage),
		Agent:         string(agentID),
		Model:         exec.Result.ModelVersion,
		Content:       captured,
		InputTokens:   exec.Result.TokensIn,
		OutputTokens:  exec.Result.TokensOut,
		DurationMs:    exec.Result.Duration.Milliseconds(),
	}
	outputURI, err := o.putArtifact(ctx, output)
	if err != nil {
		return fmt.Errorf("failed to persist agent output: %w", err)
	}
	result.OutputURI = outputURI

	outcome := artifact.StageOutcome{
		SchemaVersion: artifact.SchemaStageOutcome,
		SpecID:        specID,
		RunID:         state.RunID,
		Stage:         string(stage),
		Success:       true,
		Degraded:      result.Degraded,
		Summary:       fmt.Sprintf("%s completed by %s in %d attempt(s)", stage, agentID, exec.Attempts),
	}
	outcomeURI, err := o.putArtifact(ctx, outcome)
	if err != nil {
		return fmt.Errorf("failed to persist stage outcome: %w", err)
	}
	result.OutcomeURI = outcomeURI

	event, err := o.capsule.EmitEvent(ctx, specID, state.RunID, "StageCompleted", &secondary.CapsuleEventPayload{
		Stage:  string(stage),
		Agent:  string(agentID),
		URI:    outcomeURI,
		Schema: outcome.SchemaVersion,
		Meta:   map[string]string{"output_uri": outputURI},
	})
	if err != nil {
		return fmt.Errorf("failed to record stage event: %w", err)
	}
	if err := o.capsule.CommitManual(ctx, specID, state.RunID, string(stage)); err != nil {
		return fmt.Errorf("failed to commit stage: %w", err)
	}

	// Audit rows.
	now := time.Now().UTC().Format(time.RFC3339)
	runRow := &secondary.ConsensusRunRecord{
		ID:           state.RunID + "-" + string(stage),
		SpecID:       specID,
		Stage:        string(stage),
		RunTimestamp: now,
		ConsensusOK:  true,
		Degraded:     result.Degraded,
	}
	if err := o.runs.Create(ctx, runRow); err != nil {
		return fmt.Errorf("failed to write consensus run row: %w", err)
	}
	if err := o.outputs.Create(ctx, &secondary.AgentOutputRecord{
		ID:              uuid.NewString(),
		RunID:           runRow.ID,
		AgentName:       string(agentID),
		ModelVersion:    exec.Result.ModelVersion,
		Content:         captured,
		OutputTimestamp: now,
	}); err != nil {
		return fmt.Errorf("failed to write agent output row: %w", err)
	}

	// Projection.
	if path, err := o.workspace.WriteStageDoc(ctx, specID, stage.ArtifactFile(), content); err == nil {
		result.ProjectionPath = path
	} else {
		return fmt.Errorf("failed to write %s: %w", stage.ArtifactFile(), err)
	}

	// Evidence: checkpoint, cost summary, milestone frame.
	checkpoint := map[string]any{
		"schema_version": "bot_run_checkpoint@1.0",
		"spec_id":        specID,
		"run_id":         state.RunID,
		"stage":          string(stage),
		"seq":            event.Seq,
		"outcome_uri":    outcomeURI,
		"timestamp":      now,
	}
	o.writeEvidenceJSON(ctx, specID, fmt.Sprintf("bot_run_checkpoint_%d.json", event.Seq), checkpoint)

	o.writeEvidenceJSON(ctx, specID, string(stage)+"_cost_summary.json", CostSummary{
		SpecID:       specID,
		RunID:        state.RunID,
		Stage:        string(stage),
		Agent:        string(agentID),
		InputTokens:  exec.Result.TokensIn,
		OutputTokens: exec.Result.TokensOut,
		DurationMs:   exec.Result.Duration.Milliseconds(),
		CostUSD:      EstimateCostUSD(string(agentID), exec.Result.TokensIn, exec.Result.TokensOut),
	})

	frame := artifact.AceMilestoneFrame{
		SchemaVersion: artifact.SchemaAceMilestoneFrame,
		SpecID:        specID,
		RunID:         state.RunID,
		Stage:         string(stage),
		Decision:      "advance",
		Evidence:      outcome.Summary,
		OutcomeURI:    outcomeURI,
	}
	o.writeEvidenceJSON(ctx, specID, fmt.Sprintf("ace_milestone_%s.json", stage), frame)

	if result.Degraded {
		if err := o.runs.MarkDegraded(ctx, runRow.ID); err != nil {
			o.logger.LogWarn(ctx, fmt.Sprintf("failed to mark run degraded: %v", err))
		}
	}
	return nil
}

func (o *Orchestrator) putArtifact(ctx context.Context, a artifact.Artifact) (string, error) {
	canonical, err := artifact.Canonicalize(a)
	if err != nil {
		return "", err
	}
	return o.capsule.Put(ctx, canonical)
}

// writeEvidenceJSON is best-effort; evidence files assist verify but never
// fail a stage.
func (o *Orchestrator) writeEvidenceJSON(ctx context.Context, specID, filename string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		o.logger.LogWarn(ctx, fmt.Sprintf("failed to encode %s: %v", filename, err))
		return
	}
	if _, err := o.workspace.WriteEvidence(ctx, specID, filename, data); err != nil {
		o.logger.LogWarn(ctx, fmt.Sprintf("failed to write %s: %v", filename, err))
	}
}

// writeRunLog persists the terminal bot_run_log.json for a run.
func (o *Orchestrator) writeRunLog(ctx context.Context, state *run.State, started time.Time, errMsg string) {
	var duration float64
	if !started.IsZero() {
		duration = time.Since(started).Seconds()
	}
	stageName := ""
	if st, ok := state.CurrentStage(); ok {
		stageName = string(st)
	}
	log := map[string]any{
		"schema_version": "bot_run_log@1.0",
		"spec_id":        state.SpecID.String(),
		"run_id":         state.RunID,
		"state":          string(state.Phase.Kind),
		"current_stage":  stageName,
		"duration_s":     duration,
		"partial":        state.Phase.Kind == run.PhaseFailed && state.CurrentIndex > 0,
	}
	if errMsg != "" {
		log["error"] = errMsg
	}
	o.writeEvidenceJSON(ctx, state.SpecID.String(), "bot_run_log.json", log)
}

// completedStages reads the audit DB for stages already persisted for a spec.
func (o *Orchestrator) completedStages(ctx context.Context, specID string) ([]spec.Stage, error) {
	var completed []spec.Stage
	for _, stage := range spec.PipelineStages() {
		latest, err := o.runs.LatestForStage(ctx, specID, string(stage))
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.ConsensusOK {
			completed = append(completed, stage)
		}
	}
	return completed, nil
}

func (o *Orchestrator) begin(specID string, ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.active[specID] = cancel
	o.busy++
	o.mu.Unlock()
	return ctx, func() {
		cancel()
		o.mu.Lock()
		delete(o.active, specID)
		o.busy--
		o.mu.Unlock()
	}
}

var _ primary.PipelineService = (*Orchestrator)(nil)
