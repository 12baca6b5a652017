// Package secondary defines the secondary ports (driven adapters) for the application.
package secondary

import "context"

// WorkspaceAdapter defines the secondary port for filesystem projections:
// spec directories, stage documents, and evidence files.
type WorkspaceAdapter interface {
	// CreateSpecDir creates docs/<spec-id>-<slug>/ and returns its path.
	CreateSpecDir(ctx context.Context, specID, slug string) (string, error)

	// FindSpecDir locates the directory for a spec ID, slug unknown.
	FindSpecDir(ctx context.Context, specID string) (string, error)

	// WriteStageDoc writes a stage projection (spec.md, plan.md, ...) into
	// the spec directory.
	WriteStageDoc(ctx context.Context, specID, name, content string) (string, error)

	// ReadStageDoc reads a stage projection; missing files return an error.
	ReadStageDoc(ctx context.Context, specID, name string) (string, error)

	// StageDocExists reports whether a stage projection exists.
	StageDocExists(ctx context.Context, specID, name string) (bool, error)

	// EvidenceDir returns the evidence/ directory inside the spec's docs
	// directory, slug included when one exists, creating it.
	EvidenceDir(ctx context.Context, specID string) (string, error)

	// WriteEvidence writes a JSON evidence file and returns its path.
	WriteEvidence(ctx context.Context, specID, filename string, data []byte) (string, error)

	// ListEvidence returns evidence filenames beginning with prefix.
	ListEvidence(ctx context.Context, specID, prefix string) ([]string, error)

	// WriteVision writes the project intake projection memory/NL_VISION.md.
	WriteVision(ctx context.Context, content string) (string, error)

	// IsWorkTreeClean reports whether the repo has no uncommitted changes.
	IsWorkTreeClean(ctx context.Context) (bool, error)

	// Root returns the repository root path.
	Root() string
}
