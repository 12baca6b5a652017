// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import "context"

// ConsensusRunRepository defines the secondary port for consensus run persistence.
type ConsensusRunRepository interface {
	// Create persists a new consensus run.
	Create(ctx context.Context, run *ConsensusRunRecord) error

	// GetByID retrieves a consensus run by its ID.
	GetByID(ctx context.Context, id string) (*ConsensusRunRecord, error)

	// List retrieves consensus runs matching the given filters.
	List(ctx context.Context, filters ConsensusRunFilters) ([]*ConsensusRunRecord, error)

	// MarkDegraded flags a run as having recovered through retries.
	MarkDegraded(ctx context.Context, id string) error

	// SetSynthesis stores the synthesized consensus result for a run.
	SetSynthesis(ctx context.Context, id, synthesisJSON string, consensusOK bool) error

	// LatestForStage returns the most recent run for a spec and stage, or nil.
	LatestForStage(ctx context.Context, specID, stage string) (*ConsensusRunRecord, error)
}

// ConsensusRunRecord represents a consensus run as stored in persistence.
type ConsensusRunRecord struct {
	ID            string
	SpecID        string
	Stage         string
	RunTimestamp  string
	ConsensusOK   bool
	Degraded      bool
	SynthesisJSON string
	CreatedAt     string
}

// ConsensusRunFilters contains filter options for querying consensus runs.
type ConsensusRunFilters struct {
	SpecID string
	Stage  string
	Limit  int
}

// AgentOutputRepository defines the secondary port for per-agent output persistence.
type AgentOutputRepository interface {
	// Create persists a new agent output.
	Create(ctx context.Context, output *AgentOutputRecord) error

	// ListByRun retrieves all outputs captured for a run.
	ListByRun(ctx context.Context, runID string) ([]*AgentOutputRecord, error)

	// ListByAgent retrieves outputs produced by a named agent.
	ListByAgent(ctx context.Context, agentName string, limit int) ([]*AgentOutputRecord, error)
}

// AgentOutputRecord represents one agent's output for a consensus run.
type AgentOutputRecord struct {
	ID              string
	RunID           string
	AgentName       string
	ModelVersion    string
	Content         string
	OutputTimestamp string
	CreatedAt       string
}

// PlaybookStore defines the secondary port for playbook bullet persistence.
type PlaybookStore interface {
	// Upsert inserts a bullet or updates its text, kind, confidence and tags.
	Upsert(ctx context.Context, bullet *PlaybookBulletRecord) error

	// GetByID retrieves a bullet by its ID.
	GetByID(ctx context.Context, id string) (*PlaybookBulletRecord, error)

	// ListByScope retrieves bullets for a scope plus global bullets,
	// ordered by confidence descending.
	ListByScope(ctx context.Context, scope string, limit int) ([]*PlaybookBulletRecord, error)

	// RecordFeedback increments the helpful or harmful counter for a bullet.
	RecordFeedback(ctx context.Context, id string, helpful bool) error

	// Delete removes a bullet.
	Delete(ctx context.Context, id string) error
}

// PlaybookBulletRecord represents a curated playbook bullet as stored.
type PlaybookBulletRecord struct {
	ID           string
	Text         string
	Kind         string
	Confidence   float64
	Scope        string
	Tags         string // comma separated
	HelpfulCount int
	HarmfulCount int
	CreatedAt    string
	UpdatedAt    string
}
