// Package routing contains the pure reflex-vs-cloud routing decision for the
// Implement stage. Health probing is an adapter concern; this package only
// combines the probe results with policy.
package routing

import (
	"time"

	"github.com/example/speckit/internal/core/spec"
)

// Mode is the selected execution path.
type Mode string

const (
	ModeReflex Mode = "reflex"
	ModeCloud  Mode = "cloud"
)

// Health is the probe result handed to Decide.
type Health struct {
	Reachable      bool
	ModelAvailable bool
	Latency        time.Duration
	Detail         string
}

// Policy is the routing slice of the frozen run config.
type Policy struct {
	ReflexEnabled bool
	ReflexModel   string
	CloudAgent    spec.Agent
}

// Decision is emitted for every Implement stage regardless of outcome.
type Decision struct {
	Mode           Mode
	SelectedAgent  spec.Agent
	IsFallback     bool
	FallbackReason string
	HealthLatency  time.Duration
}

// Decide selects the execution path for the Implement stage. The decision is
// made once per run; a reflex endpoint that goes unhealthy mid-stage is the
// executor's retry problem, the router is not re-queried.
func Decide(policy Policy, health Health) Decision {
	if !policy.ReflexEnabled {
		return Decision{
			Mode:           ModeCloud,
			SelectedAgent:  policy.CloudAgent,
			IsFallback:     false,
			FallbackReason: "",
		}
	}
	if !health.Reachable {
		return Decision{
			Mode:           ModeCloud,
			SelectedAgent:  policy.CloudAgent,
			IsFallback:     true,
			FallbackReason: "reflex endpoint unreachable: " + health.Detail,
			HealthLatency:  health.Latency,
		}
	}
	if !health.ModelAvailable {
		return Decision{
			Mode:           ModeCloud,
			SelectedAgent:  policy.CloudAgent,
			IsFallback:     true,
			FallbackReason: "reflex model " + policy.ReflexModel + " unavailable",
			HealthLatency:  health.Latency,
		}
	}
	return Decision{
		Mode:          ModeReflex,
		SelectedAgent: policy.CloudAgent,
		HealthLatency: health.Latency,
	}
}
