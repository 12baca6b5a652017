package routing

import (
	"strings"
	"testing"
	"time"

	"github.com/example/speckit/internal/core/spec"
)

func policy(enabled bool) Policy {
	return Policy{ReflexEnabled: enabled, ReflexModel: "qwen-coder", CloudAgent: spec.AgentClaude}
}

func TestDecideReflexDisabled(t *testing.T) {
	d := Decide(policy(false), Health{})
	if d.Mode != ModeCloud {
		t.Errorf("mode = %s, want cloud", d.Mode)
	}
	if d.IsFallback {
		t.Error("disabled reflex is not a fallback, it is the configured path")
	}
}

func TestDecideHealthyReflex(t *testing.T) {
	d := Decide(policy(true), Health{Reachable: true, ModelAvailable: true, Latency: 12 * time.Millisecond})
	if d.Mode != ModeReflex {
		t.Errorf("mode = %s, want reflex", d.Mode)
	}
	if d.IsFallback {
		t.Error("healthy reflex must not be a fallback")
	}
	if d.HealthLatency != 12*time.Millisecond {
		t.Errorf("latency = %s", d.HealthLatency)
	}
}

func TestDecideUnreachableFallsBack(t *testing.T) {
	d := Decide(policy(true), Health{Reachable: false, Detail: "connection refused"})
	if d.Mode != ModeCloud || !d.IsFallback {
		t.Fatalf("decision = %+v, want cloud fallback", d)
	}
	if !strings.Contains(d.FallbackReason, "connection refused") {
		t.Errorf("fallback reason %q should carry the probe detail", d.FallbackReason)
	}
	if d.SelectedAgent != spec.AgentClaude {
		t.Errorf("fallback agent = %s, want claude", d.SelectedAgent)
	}
}

func TestDecideMissingModelFallsBack(t *testing.T) {
	d := Decide(policy(true), Health{Reachable: true, ModelAvailable: false})
	if d.Mode != ModeCloud || !d.IsFallback {
		t.Fatalf("decision = %+v, want cloud fallback", d)
	}
	if !strings.Contains(d.FallbackReason, "qwen-coder") {
		t.Errorf("fallback reason %q should name the model", d.FallbackReason)
	}
}
