package secondary

import "context"

// RunLogger defines the interface for structured pipeline log records.
// Implementations decide the sink (stderr, evidence files).
type RunLogger interface {
	// LogAttempt records one executor attempt.
	LogAttempt(ctx context.Context, agent string, attempt int, errorClass string, backoffMs int64)

	// LogStage records a stage lifecycle message.
	LogStage(ctx context.Context, specID, stage, message string)

	// LogWarn records a non-fatal condition.
	LogWarn(ctx context.Context, message string)
}
