// Package secondary defines the secondary ports (driven adapters) for the application.
package secondary

import "context"

// HalAdapter defines the secondary port for human-at-loop live sessions.
type HalAdapter interface {
	// CreateRunSession opens a watch session for a run.
	CreateRunSession(ctx context.Context, specID, workdir, monitorCmd string) error

	// KillRunSession tears the session down.
	KillRunSession(ctx context.Context, specID string) error

	// HasRunSession reports whether a session exists for a spec.
	HasRunSession(ctx context.Context, specID string) bool

	// AttachInstructions returns the operator hint for joining a session.
	AttachInstructions(specID string) string
}
