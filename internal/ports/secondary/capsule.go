package secondary

import "context"

// CapsuleStore defines the secondary port for the content-addressed artifact
// store and its append-only event log.
type CapsuleStore interface {
	// Put stores canonical bytes write-once under their hash and returns the
	// capsule URI. Storing the same bytes twice returns the same URI.
	Put(ctx context.Context, data []byte) (string, error)

	// Get retrieves the bytes behind a capsule URI.
	Get(ctx context.Context, uri string) ([]byte, error)

	// Exists reports whether a capsule URI resolves.
	Exists(ctx context.Context, uri string) (bool, error)

	// EmitEvent appends an event to the (spec_id, run_id) log. Sequence
	// numbers are assigned by the store and are monotonic per run.
	EmitEvent(ctx context.Context, specID, runID, kind string, payload *CapsuleEventPayload) (*CapsuleEvent, error)

	// CommitManual writes a checkpoint event used as a fence after intake
	// persistence and after each stage.
	CommitManual(ctx context.Context, specID, runID, label string) error

	// ListEvents returns events for a run in sequence order. An empty
	// kindFilter returns everything.
	ListEvents(ctx context.Context, specID, runID, kindFilter string) ([]*CapsuleEvent, error)
}

// CapsuleEventPayload carries the artifact references and metadata of an event.
type CapsuleEventPayload struct {
	Stage  string            `json:"stage,omitempty"`
	Agent  string            `json:"agent,omitempty"`
	URI    string            `json:"uri,omitempty"`
	Schema string            `json:"schema,omitempty"`
	Label  string            `json:"label,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// CapsuleEvent is one entry in a run's append-only event log.
type CapsuleEvent struct {
	SpecID    string              `json:"spec_id"`
	RunID     string              `json:"run_id"`
	Seq       int                 `json:"seq"`
	Kind      string              `json:"kind"`
	Timestamp string              `json:"timestamp"`
	Payload   CapsuleEventPayload `json:"payload"`
}
