package primary

import (
	"context"

	"github.com/example/speckit/internal/core/intake"
)

// IntakeService defines the primary port for spec and project intake.
type IntakeService interface {
	// NewSpec validates answers, persists the capsule system of record,
	// then writes filesystem projections and allocates a SPEC-ID.
	NewSpec(ctx context.Context, req NewSpecRequest) (*NewSpecResponse, error)

	// NewProject validates answers and produces the project brief plus the
	// memory/NL_VISION.md projection.
	NewProject(ctx context.Context, req NewProjectRequest) (*NewProjectResponse, error)
}

// NewSpecRequest contains the intake questionnaire answers for a spec.
type NewSpecRequest struct {
	Kind    string // SPEC-ID kind segment, e.g. "KIT"
	Title   string
	Answers intake.Answers
}

// NewSpecResponse contains the allocated spec and its artifacts.
type NewSpecResponse struct {
	SpecID      string
	SpecDir     string
	AnswersURI  string
	BriefURI    string
	IntakeFrame string
	ContentHash string
}

// NewProjectRequest contains the intake questionnaire answers for a project.
type NewProjectRequest struct {
	Name    string
	Answers intake.Answers
}

// NewProjectResponse contains the project brief artifacts.
type NewProjectResponse struct {
	AnswersURI  string
	BriefURI    string
	VisionPath  string
	ContentHash string
}
