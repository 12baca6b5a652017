package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/speckit/internal/core/retry"
	"github.com/example/speckit/internal/faults"
	"github.com/example/speckit/internal/ports/secondary"
)

// ExecutorService runs one agent with bounded retries. It owns the clock:
// classification and backoff math live in core/retry.
type ExecutorService struct {
	logger secondary.RunLogger
	cfg    retry.Config
	sleep  func(time.Duration)
	rng    *rand.Rand
}

// NewExecutorService creates an executor with the pipeline retry policy.
func NewExecutorService(logger secondary.RunLogger) *ExecutorService {
	return &ExecutorService{
		logger: logger,
		cfg:    retry.DefaultConfig(),
		sleep:  time.Sleep,
	}
}

// ExecutionResult is one completed agent execution plus retry accounting.
type ExecutionResult struct {
	Result   *secondary.AgentResult
	Attempts int
	// Degraded marks success reached only after retrying.
	Degraded bool
}

// Execute runs the agent through the retry loop. Permanent errors and
// exhaustion return the last classified error.
func (e *ExecutorService) Execute(ctx context.Context, runner secondary.AgentRunner, req secondary.AgentRequest) (*ExecutionResult, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		result, err := e.runAttempt(ctx, runner, req)
		if err == nil {
			e.logger.LogAttempt(ctx, req.Agent, attempt, "", 0)
			return &ExecutionResult{
				Result:   result,
				Attempts: attempt,
				Degraded: attempt > 1,
			}, nil
		}
		lastErr = err

		cls := classify(err)
		if !e.cfg.ShouldRetry(cls, attempt) {
			e.logger.LogAttempt(ctx, req.Agent, attempt, string(cls.Reason), 0)
			return nil, fmt.Errorf("agent %s failed after %d attempt(s): %w", req.Agent, attempt, err)
		}

		backoff := e.cfg.Jitter(e.cfg.Backoff(attempt, cls.RetryAfter), e.rng)
		e.logger.LogAttempt(ctx, req.Agent, attempt, string(cls.Reason), backoff.Milliseconds())

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("agent %s cancelled during backoff: %w", req.Agent, ctx.Err())
		default:
		}
		e.sleep(backoff)
	}
	return nil, fmt.Errorf("agent %s exhausted %d attempts: %w", req.Agent, e.cfg.MaxAttempts, lastErr)
}

// runAttempt consults the fault plan before touching the runner; an injected
// fault consumes the attempt.
func (e *ExecutorService) runAttempt(ctx context.Context, runner secondary.AgentRunner, req secondary.AgentRequest) (*secondary.AgentResult, error) {
	if fault, ok := faults.Next(); ok {
		return nil, faultError(req.Agent, fault)
	}
	return runner.Run(ctx, req)
}

func faultError(agent string, fault faults.Fault) *retry.AgentError {
	switch fault.Kind {
	case faults.RateLimit:
		msg := "429 rate limit exceeded"
		if fault.ResetHint > 0 {
			msg = fmt.Sprintf("429 rate limit exceeded, retry-after: %d", int(fault.ResetHint.Seconds()))
		}
		return retry.NewAgentError(msg, "")
	case faults.Timeout:
		d := fault.TimeoutDur
		if d <= 0 {
			d = time.Second
		}
		return retry.TimeoutError(d)
	default:
		return retry.NewAgentError(fmt.Sprintf("agent %s: connection reset by peer", agent), "")
	}
}

func classify(err error) retry.Classification {
	var agentErr *retry.AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Classification
	}
	return retry.Classify(err.Error(), "")
}
