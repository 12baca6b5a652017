// Package retry contains the pure logic for agent error classification and
// backoff scheduling. No I/O and no sleeping happens here; the executor owns
// the clock.
package retry

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Class is the top-level error classification.
type Class int

const (
	// Retryable errors are transient and worth another attempt.
	Retryable Class = iota
	// Permanent errors must not be retried.
	Permanent
	// Degraded marks a soft failure the pipeline can continue through.
	Degraded
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case Permanent:
		return "permanent"
	case Degraded:
		return "degraded"
	}
	return "unknown"
}

// Reason is the finer-grained cause inside a class.
type Reason string

const (
	ReasonNetworkTimeout     Reason = "network_timeout"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonServiceUnavailable Reason = "service_unavailable"
	ReasonConnectionRefused  Reason = "connection_refused"
	ReasonDatabaseLocked     Reason = "database_locked"
	ReasonAuthFailed         Reason = "auth_failed"
	ReasonNotFound           Reason = "not_found"
	ReasonInvalidInput       Reason = "invalid_input"
)

// Classification is the outcome of classifying one agent failure.
type Classification struct {
	Class  Class
	Reason Reason
	// RetryAfter carries a provider rate-limit reset hint when one was
	// recognized in the error text. Zero means no hint.
	RetryAfter time.Duration
}

// AgentError is a classified agent failure.
type AgentError struct {
	Classification
	Message string
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Class, e.Reason, e.Message)
}

// NewAgentError classifies message+stderr and wraps them as an error.
func NewAgentError(message, stderr string) *AgentError {
	return &AgentError{
		Classification: Classify(message, stderr),
		Message:        strings.TrimSpace(message),
	}
}

var retryAfterPattern = regexp.MustCompile(`retry[- ]after[:\s]+(\d+)`)

// DefaultRateLimitBackoff is the backoff floor used for rate limits when the
// provider supplies no reset hint.
const DefaultRateLimitBackoff = 60 * time.Second

// Classify inspects an error message plus captured stderr and decides whether
// the failure is worth retrying. Unknown failures default to retryable
// service-unavailable: transient infrastructure trouble is far more common
// than novel permanent errors.
func Classify(message, stderr string) Classification {
	text := strings.ToLower(message + "\n" + stderr)

	switch {
	case strings.Contains(text, "invalid api key"),
		strings.Contains(text, "unauthorized"),
		strings.Contains(text, "401"):
		return Classification{Class: Permanent, Reason: ReasonAuthFailed}

	case strings.Contains(text, "model not found"),
		strings.Contains(text, "404"):
		return Classification{Class: Permanent, Reason: ReasonNotFound}

	case strings.Contains(text, "quota exceeded"):
		return Classification{Class: Permanent, Reason: ReasonInvalidInput}

	case strings.Contains(text, "rate limit"), strings.Contains(text, "429"):
		c := Classification{Class: Retryable, Reason: ReasonRateLimited, RetryAfter: DefaultRateLimitBackoff}
		if m := retryAfterPattern.FindStringSubmatch(text); m != nil {
			var secs int
			fmt.Sscanf(m[1], "%d", &secs)
			if secs > 0 {
				c.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return c

	case strings.Contains(text, "timed out"), strings.Contains(text, "timeout"):
		return Classification{Class: Retryable, Reason: ReasonNetworkTimeout}

	case strings.Contains(text, "connection refused"),
		strings.Contains(text, "reset"):
		return Classification{Class: Retryable, Reason: ReasonConnectionRefused}

	case strings.Contains(text, "database is locked"),
		strings.Contains(text, "sqlite_busy"):
		return Classification{Class: Retryable, Reason: ReasonDatabaseLocked}

	case strings.Contains(text, "503"),
		strings.Contains(text, "502"),
		strings.Contains(text, "overloaded"),
		strings.Contains(text, "service unavailable"):
		return Classification{Class: Retryable, Reason: ReasonServiceUnavailable}
	}

	return Classification{Class: Retryable, Reason: ReasonServiceUnavailable}
}

// EmptyOutputError is the permanent failure produced when an agent exits
// zero but emits no content.
func EmptyOutputError(agent string) *AgentError {
	return &AgentError{
		Classification: Classification{Class: Permanent, Reason: ReasonInvalidInput},
		Message:        fmt.Sprintf("agent %s returned success with empty output", agent),
	}
}

// TimeoutError is the retryable failure produced when the stage timer expires.
func TimeoutError(d time.Duration) *AgentError {
	return &AgentError{
		Classification: Classification{Class: Retryable, Reason: ReasonNetworkTimeout},
		Message:        fmt.Sprintf("timed out after %ds", int(d.Seconds())),
	}
}
