package primary

import "context"

// PlaybookService defines the primary port for ACE playbook operations.
type PlaybookService interface {
	// Slice returns the formatted playbook section for a scope, ready for
	// prompt insertion, plus the IDs of the bullets used.
	Slice(ctx context.Context, req SliceRequest) (*SliceResponse, error)

	// PinConstitution extracts imperative bullets from a constitution
	// document and pins them by scope. Best-effort.
	PinConstitution(ctx context.Context, markdown string) (*PinResult, error)

	// ReflectCurate runs the reflect+curate cycle for a finished stage.
	// Best-effort; errors are logged, never returned to the pipeline.
	ReflectCurate(ctx context.Context, req ReflectRequest)

	// Feedback records helpful/harmful feedback for a bullet.
	Feedback(ctx context.Context, bulletID string, helpful bool) error
}

// SliceRequest selects a playbook slice.
type SliceRequest struct {
	Scope          string
	SliceSize      int
	IncludeNeutral bool
}

// SliceResponse is a formatted playbook section.
type SliceResponse struct {
	Section   string
	BulletIDs []string
}

// PinResult summarizes a constitution pinning pass.
type PinResult struct {
	Pinned  int
	Skipped int
}

// ReflectRequest carries the execution feedback for reflect+curate.
type ReflectRequest struct {
	SpecID        string
	Stage         string
	Transcript    string
	UsedBulletIDs []string
	CompileOK     bool
	TestsPassed   bool
	FailingTests  []string
	LintCount     int
}
