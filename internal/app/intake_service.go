package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/speckit/internal/core/artifact"
	"github.com/example/speckit/internal/core/intake"
	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
)

// IntakeServiceImpl implements the IntakeService interface. The capsule is
// the system of record: artifacts and the IntakeCompleted event land there
// first, and any capsule error aborts before a single projection is written.
type IntakeServiceImpl struct {
	capsule   secondary.CapsuleStore
	workspace secondary.WorkspaceAdapter
	runs      secondary.ConsensusRunRepository
}

// NewIntakeService creates an IntakeService with injected dependencies.
func NewIntakeService(
	capsule secondary.CapsuleStore,
	workspace secondary.WorkspaceAdapter,
	runs secondary.ConsensusRunRepository,
) *IntakeServiceImpl {
	return &IntakeServiceImpl{
		capsule:   capsule,
		workspace: workspace,
		runs:      runs,
	}
}

// NewSpec validates answers, persists the capsule system of record, then
// writes the filesystem projections.
func (s *IntakeServiceImpl) NewSpec(ctx context.Context, req primary.NewSpecRequest) (*primary.NewSpecResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := intake.Validate(req.Answers); err != nil {
		return nil, fmt.Errorf("intake validation failed: %w", err)
	}

	specID, err := s.allocateID(ctx, req.Kind)
	if err != nil {
		return nil, err
	}

	answers := intake.Canonical(specID.String(), req.Answers)
	answersURI, answersHash, err := s.putArtifact(ctx, answers)
	if err != nil {
		return nil, fmt.Errorf("failed to persist intake answers: %w", err)
	}

	brief := intake.BuildDesignBrief(specID.String(), req.Title, answers, answersURI)
	briefURI, _, err := s.putArtifact(ctx, brief)
	if err != nil {
		return nil, fmt.Errorf("failed to persist design brief: %w", err)
	}

	frame := intake.FrameFromDesignBrief(brief, briefURI)
	frameURI, _, err := s.putArtifact(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to persist intake frame: %w", err)
	}

	runID := uuid.NewString()
	if _, err := s.capsule.EmitEvent(ctx, specID.String(), runID, "IntakeCompleted", &secondary.CapsuleEventPayload{
		URI:    briefURI.String(),
		Schema: brief.SchemaVersion,
		Meta: map[string]string{
			"answers_uri": answersURI.String(),
			"frame_uri":   frameURI.String(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to record intake event: %w", err)
	}
	if err := s.capsule.CommitManual(ctx, specID.String(), runID, "intake"); err != nil {
		return nil, fmt.Errorf("failed to commit intake: %w", err)
	}

	// Capsule writes are complete; projections may fail without losing the
	// system of record.
	slug := spec.Slug(req.Title)
	dir, err := s.workspace.CreateSpecDir(ctx, specID.String(), slug)
	if err != nil {
		return nil, fmt.Errorf("failed to create spec directory: %w", err)
	}
	if _, err := s.workspace.WriteStageDoc(ctx, specID.String(), "INTAKE.md", renderIntakeDoc(specID.String(), req.Title, answers)); err != nil {
		return nil, fmt.Errorf("failed to write INTAKE.md: %w", err)
	}
	if _, err := s.workspace.WriteStageDoc(ctx, specID.String(), "spec.md", renderSpecDoc(specID.String(), req.Title, brief)); err != nil {
		return nil, fmt.Errorf("failed to write spec.md: %w", err)
	}

	// The ship gate requires this evidence file before unlock.
	frameJSON, err := artifact.Canonicalize(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode maieutic spec: %w", err)
	}
	if _, err := s.workspace.WriteEvidence(ctx, specID.String(), "maieutic_spec_"+runID+".json", frameJSON); err != nil {
		return nil, fmt.Errorf("failed to write maieutic evidence: %w", err)
	}

	return &primary.NewSpecResponse{
		SpecID:      specID.String(),
		SpecDir:     dir,
		AnswersURI:  answersURI.String(),
		BriefURI:    briefURI.String(),
		IntakeFrame: frameURI.String(),
		ContentHash: answersHash,
	}, nil
}

// NewProject validates answers and produces the project brief plus the
// memory/NL_VISION.md projection.
func (s *IntakeServiceImpl) NewProject(ctx context.Context, req primary.NewProjectRequest) (*primary.NewProjectResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if err := intake.Validate(req.Answers); err != nil {
		return nil, fmt.Errorf("intake validation failed: %w", err)
	}

	answers := intake.Canonical("", req.Answers)
	answers.SchemaVersion = artifact.SchemaProjectIntakeAnswers
	answersURI, answersHash, err := s.putArtifact(ctx, answers)
	if err != nil {
		return nil, fmt.Errorf("failed to persist project answers: %w", err)
	}

	brief := intake.BuildProjectBrief(req.Name, answers, answersURI)
	briefURI, _, err := s.putArtifact(ctx, brief)
	if err != nil {
		return nil, fmt.Errorf("failed to persist project brief: %w", err)
	}

	frame := intake.FrameFromProjectBrief(brief, briefURI)
	if _, _, err := s.putArtifact(ctx, frame); err != nil {
		return nil, fmt.Errorf("failed to persist intake frame: %w", err)
	}

	runID := uuid.NewString()
	projectKey := "PROJECT-" + spec.Slug(req.Name)
	if _, err := s.capsule.EmitEvent(ctx, projectKey, runID, "IntakeCompleted", &secondary.CapsuleEventPayload{
		URI:    briefURI.String(),
		Schema: brief.SchemaVersion,
	}); err != nil {
		return nil, fmt.Errorf("failed to record intake event: %w", err)
	}
	if err := s.capsule.CommitManual(ctx, projectKey, runID, "project_intake"); err != nil {
		return nil, fmt.Errorf("failed to commit project intake: %w", err)
	}

	visionPath, err := s.workspace.WriteVision(ctx, renderVisionDoc(req.Name, brief))
	if err != nil {
		return nil, fmt.Errorf("failed to write vision projection: %w", err)
	}

	return &primary.NewProjectResponse{
		AnswersURI:  answersURI.String(),
		BriefURI:    briefURI.String(),
		VisionPath:  visionPath,
		ContentHash: answersHash,
	}, nil
}

// allocateID scans existing spec directories for the kind's highest number.
func (s *IntakeServiceImpl) allocateID(ctx context.Context, kind string) (spec.ID, error) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	if kind == "" {
		kind = "KIT"
	}
	var existing []spec.ID
	records, err := s.runs.List(ctx, secondary.ConsensusRunFilters{})
	if err == nil {
		for _, r := range records {
			if id, err := spec.ParseID(r.SpecID); err == nil {
				existing = append(existing, id)
			}
		}
	}
	// Directories count too: a spec with no runs yet still owns its number.
	for n := 1; ; n++ {
		candidate := spec.NextID(kind, existing)
		if _, err := s.workspace.FindSpecDir(ctx, candidate.String()); err != nil {
			return candidate, nil
		}
		existing = append(existing, candidate)
		if n > 999 {
			return "", fmt.Errorf("could not allocate a SPEC ID for kind %s", kind)
		}
	}
}

func (s *IntakeServiceImpl) putArtifact(ctx context.Context, a artifact.Artifact) (artifact.URI, string, error) {
	canonical, err := artifact.Canonicalize(a)
	if err != nil {
		return "", "", err
	}
	raw, err := s.capsule.Put(ctx, canonical)
	if err != nil {
		return "", "", err
	}
	uri, err := artifact.ParseURI(raw)
	if err != nil {
		return "", "", err
	}
	return uri, artifact.HashBytes(canonical), nil
}

func renderIntakeDoc(specID, title string, answers artifact.IntakeAnswers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n## Problem\n\n%s\n", specID, title, answers.Problem)
	writeList(&b, "Users", answers.Users)
	writeList(&b, "Goals", answers.Goals)
	writeList(&b, "Non-goals", answers.NonGoals)
	writeList(&b, "Constraints", answers.Constraints)
	writeList(&b, "Integration points", answers.IntegrationPoints)
	writeList(&b, "Acceptance criteria", answers.AcceptanceCriteria)
	return b.String()
}

func renderSpecDoc(specID, title string, brief artifact.DesignBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n## Problem\n\n%s\n\n## Outcome\n\n%s\n", specID, title, brief.Problem, brief.Outcome)
	writeList(&b, "Scope", brief.Scope)
	writeList(&b, "Out of scope", brief.OutOfScope)
	writeList(&b, "Acceptance", brief.Acceptance)
	return b.String()
}

func renderVisionDoc(name string, brief artifact.ProjectBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Vision\n\n%s\n", name, brief.Vision)
	writeList(&b, "Goals", brief.Goals)
	writeList(&b, "Constraints", brief.Constraints)
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

var _ primary.IntakeService = (*IntakeServiceImpl)(nil)
