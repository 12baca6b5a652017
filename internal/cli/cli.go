// Package cli provides the cobra command surface for speckit. Every command
// dispatches through the registry so the MCP server shares the same entry
// points.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/example/speckit/internal/ports/primary"
)

// ExitNeedsInput is the process exit code for an escalated quality gate.
const ExitNeedsInput = 10

// globalSessionID identifies this CLI invocation in guardrail telemetry.
// Set once at startup.
var globalSessionID string

// rootCtx is cancelled on SIGINT/SIGTERM so an interrupted run still fails
// cleanly and persists its run log.
var rootCtx context.Context = context.Background()

// InitSession allocates the session ID for the current invocation and hooks
// the root context to termination signals. Called once from
// PersistentPreRun; the stop function is intentionally never called, the
// signal hook lives for the whole process.
func InitSession() {
	globalSessionID = uuid.NewString()
	rootCtx, _ = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// SessionID returns the session ID allocated at startup.
func SessionID() string {
	return globalSessionID
}

// NewContext returns the root context for a command invocation.
func NewContext() context.Context {
	return rootCtx
}

// needsInputError signals that a quality gate escalated and the operator
// must answer before the pipeline continues.
type needsInputError struct {
	specID string
	gate   string
}

func (e *needsInputError) Error() string {
	return "needs input: answer the escalated " + e.gate + " questions for " + e.specID + " and rerun"
}

// IsNeedsInput reports whether err should map to ExitNeedsInput.
func IsNeedsInput(err error) bool {
	for err != nil {
		if _, ok := err.(*needsInputError); ok {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// questionLines renders escalated questions for the terminal.
func questionLines(questions []primary.GateQuestion) []string {
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		line := "  [" + q.Magnitude + "] " + q.ID + ": " + q.Question
		if q.Context != "" {
			line += " (" + q.Context + ")"
		}
		lines = append(lines, line)
	}
	return lines
}
