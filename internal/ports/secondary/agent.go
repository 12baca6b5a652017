package secondary

import (
	"context"
	"time"
)

// AgentRequest describes one agent invocation.
type AgentRequest struct {
	Agent   string
	Model   string
	Prompt  string
	Stage   string
	SpecID  string
	Timeout time.Duration
}

// AgentResult is the outcome of a completed agent invocation.
type AgentResult struct {
	Content      string
	ModelVersion string
	TokensIn     int
	TokensOut    int
	Duration     time.Duration
	Stderr       string
}

// AgentRunner defines the secondary port for executing a single agent.
// Implementations stream events internally and return the final result;
// transient failures surface as errors for the executor's retry loop.
type AgentRunner interface {
	// Run executes the agent and blocks until it completes or ctx is done.
	Run(ctx context.Context, req AgentRequest) (*AgentResult, error)

	// Name identifies the runner for routing decisions and telemetry.
	Name() string
}

// ReflectModel defines the secondary port for the reflection model used to
// distill playbook bullets from stage transcripts.
type ReflectModel interface {
	// Reflect asks the model to extract candidate bullets from a transcript.
	Reflect(ctx context.Context, transcript string) ([]ReflectedBullet, error)

	// Curate asks the model to merge candidates into the existing playbook,
	// returning the bullets to upsert.
	Curate(ctx context.Context, existing, candidates []ReflectedBullet) ([]ReflectedBullet, error)
}

// ReflectedBullet is a candidate playbook bullet produced by reflection.
type ReflectedBullet struct {
	Text       string
	Kind       string
	Scope      string
	Confidence float64
	Tags       []string
}

// ReflexProbe defines the secondary port for checking local model runtime health.
type ReflexProbe interface {
	// Check probes the runtime and reports reachability, whether the
	// requested model is loaded, and observed latency.
	Check(ctx context.Context, model string) (*ReflexHealth, error)
}

// ReflexHealth is the result of a reflex runtime probe.
type ReflexHealth struct {
	Reachable      bool
	ModelAvailable bool
	Latency        time.Duration
	FreeMemory     uint64
	Detail         string
}
