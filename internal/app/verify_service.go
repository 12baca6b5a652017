package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
)

// VerifyServiceImpl implements the VerifyService interface: it reconstructs
// a run's timeline from the capsule event log and cross-checks it against
// the audit rows and the filesystem projections.
type VerifyServiceImpl struct {
	capsule   secondary.CapsuleStore
	runs      secondary.ConsensusRunRepository
	outputs   secondary.AgentOutputRepository
	workspace secondary.WorkspaceAdapter
}

// NewVerifyService creates a VerifyService with injected dependencies.
func NewVerifyService(
	capsule secondary.CapsuleStore,
	runs secondary.ConsensusRunRepository,
	outputs secondary.AgentOutputRepository,
	workspace secondary.WorkspaceAdapter,
) *VerifyServiceImpl {
	return &VerifyServiceImpl{
		capsule:   capsule,
		runs:      runs,
		outputs:   outputs,
		workspace: workspace,
	}
}

// Verify cross-checks the capsule event log, the audit rows, and the
// filesystem projections for a spec's latest run.
func (s *VerifyServiceImpl) Verify(ctx context.Context, specID string) (*primary.VerifyReport, error) {
	if _, err := spec.ParseID(specID); err != nil {
		return nil, err
	}
	report := &primary.VerifyReport{SpecID: specID}

	runID, err := s.latestRunID(ctx, specID)
	if err != nil {
		return nil, err
	}
	report.RunID = runID

	report.Checks = append(report.Checks, s.checkEventLog(ctx, specID, runID))
	report.Checks = append(report.Checks, s.checkArtifactsResolve(ctx, specID, runID))
	report.Checks = append(report.Checks, s.checkAuditRows(ctx, specID, runID))
	report.Checks = append(report.Checks, s.checkProjections(ctx, specID))

	report.Passed = true
	for _, c := range report.Checks {
		if !c.Passed {
			report.Passed = false
		}
	}
	return report, nil
}

// Status summarizes pipeline progress for a spec.
func (s *VerifyServiceImpl) Status(ctx context.Context, specID string) (*primary.StatusReport, error) {
	if _, err := spec.ParseID(specID); err != nil {
		return nil, err
	}
	report := &primary.StatusReport{SpecID: specID, Done: true}

	for _, stage := range spec.PipelineStages() {
		status := primary.StageStatus{Stage: string(stage)}
		latest, err := s.runs.LatestForStage(ctx, specID, string(stage))
		if err != nil {
			return nil, fmt.Errorf("failed to read audit rows: %w", err)
		}
		if latest != nil && latest.ConsensusOK {
			status.Complete = true
			status.Degraded = latest.Degraded
			status.RunTimestamp = latest.RunTimestamp
			rows, err := s.outputs.ListByRun(ctx, latest.ID)
			if err == nil && len(rows) > 0 {
				status.Agent = rows[0].AgentName
			}
		} else {
			if report.Done {
				report.CurrentStage = string(stage)
			}
			report.Done = false
		}
		report.Stages = append(report.Stages, status)
	}

	// Token totals come from the cost summary evidence files.
	for _, stage := range spec.PipelineStages() {
		summary, ok := s.readCostSummary(ctx, specID, stage)
		if !ok {
			continue
		}
		report.TotalTokens += summary.InputTokens + summary.OutputTokens
		report.TotalCostUSD += summary.CostUSD
	}
	return report, nil
}

// latestRunID extracts the run id behind the newest audit row for the spec.
// Row ids are <run-id>-<stage>.
func (s *VerifyServiceImpl) latestRunID(ctx context.Context, specID string) (string, error) {
	rows, err := s.runs.List(ctx, secondary.ConsensusRunFilters{SpecID: specID, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("failed to read audit rows: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no recorded runs for %s", specID)
	}
	id := rows[0].ID
	if idx := strings.LastIndex(id, "-"+rows[0].Stage); idx > 0 {
		return id[:idx], nil
	}
	return id, nil
}

// checkEventLog verifies sequence monotonicity and stage ordering.
func (s *VerifyServiceImpl) checkEventLog(ctx context.Context, specID, runID string) primary.VerifyCheck {
	check := primary.VerifyCheck{Name: "event_log_order"}
	events, err := s.capsule.ListEvents(ctx, specID, runID, "")
	if err != nil {
		check.Message = err.Error()
		return check
	}
	if len(events) == 0 {
		check.Message = "event log is empty"
		return check
	}
	lastSeq := 0
	lastStageIdx := -1
	for _, ev := range events {
		if ev.Seq <= lastSeq {
			check.Message = fmt.Sprintf("sequence not monotonic at seq %d", ev.Seq)
			return check
		}
		lastSeq = ev.Seq
		if ev.Kind == "StageCompleted" {
			idx := spec.Stage(ev.Payload.Stage).Index()
			if idx < lastStageIdx {
				check.Message = fmt.Sprintf("stage %s completed out of order", ev.Payload.Stage)
				return check
			}
			lastStageIdx = idx
		}
	}
	check.Passed = true
	check.Message = fmt.Sprintf("%d events, monotonic", len(events))
	return check
}

// checkArtifactsResolve verifies every URI referenced by an event resolves.
func (s *VerifyServiceImpl) checkArtifactsResolve(ctx context.Context, specID, runID string) primary.VerifyCheck {
	check := primary.VerifyCheck{Name: "artifacts_resolve"}
	events, err := s.capsule.ListEvents(ctx, specID, runID, "")
	if err != nil {
		check.Message = err.Error()
		return check
	}
	count := 0
	for _, ev := range events {
		if ev.Payload.URI == "" {
			continue
		}
		ok, err := s.capsule.Exists(ctx, ev.Payload.URI)
		if err != nil || !ok {
			check.Message = fmt.Sprintf("artifact %s does not resolve", ev.Payload.URI)
			return check
		}
		count++
	}
	check.Passed = true
	check.Message = fmt.Sprintf("%d artifact references resolve", count)
	return check
}

// checkAuditRows verifies each StageCompleted event has matching audit rows.
func (s *VerifyServiceImpl) checkAuditRows(ctx context.Context, specID, runID string) primary.VerifyCheck {
	check := primary.VerifyCheck{Name: "audit_rows_consistent"}
	events, err := s.capsule.ListEvents(ctx, specID, runID, "StageCompleted")
	if err != nil {
		check.Message = err.Error()
		return check
	}
	for _, ev := range events {
		row, err := s.runs.GetByID(ctx, runID+"-"+ev.Payload.Stage)
		if err != nil {
			check.Message = fmt.Sprintf("no audit row for stage %s", ev.Payload.Stage)
			return check
		}
		outputs, err := s.outputs.ListByRun(ctx, row.ID)
		if err != nil || len(outputs) == 0 {
			check.Message = fmt.Sprintf("no agent output rows for stage %s", ev.Payload.Stage)
			return check
		}
	}
	check.Passed = true
	check.Message = fmt.Sprintf("%d stages cross-check", len(events))
	return check
}

// checkProjections verifies the stage markdown files exist for completed
// stages.
func (s *VerifyServiceImpl) checkProjections(ctx context.Context, specID string) primary.VerifyCheck {
	check := primary.VerifyCheck{Name: "projections_present"}
	missing := []string{}
	for _, stage := range spec.PipelineStages() {
		latest, err := s.runs.LatestForStage(ctx, specID, string(stage))
		if err != nil || latest == nil || !latest.ConsensusOK {
			continue
		}
		exists, err := s.workspace.StageDocExists(ctx, specID, stage.ArtifactFile())
		if err != nil || !exists {
			missing = append(missing, stage.ArtifactFile())
		}
	}
	if len(missing) > 0 {
		check.Message = "missing projections: " + strings.Join(missing, ", ")
		return check
	}
	check.Passed = true
	check.Message = "all completed stages have projections"
	return check
}

func (s *VerifyServiceImpl) readCostSummary(ctx context.Context, specID string, stage spec.Stage) (CostSummary, bool) {
	files, err := s.workspace.ListEvidence(ctx, specID, string(stage)+"_cost_summary")
	if err != nil || len(files) == 0 {
		return CostSummary{}, false
	}
	dir, err := s.workspace.EvidenceDir(ctx, specID)
	if err != nil {
		return CostSummary{}, false
	}
	return loadCostSummary(dir, files[0])
}

var _ primary.VerifyService = (*VerifyServiceImpl)(nil)
