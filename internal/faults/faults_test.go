package faults

import (
	"testing"
	"time"
)

func TestDisabledWithoutScope(t *testing.T) {
	t.Setenv("CODEX_FAULTS_SCOPE", "")
	t.Setenv("CODEX_FAULTS", "429:1")
	Reload()
	if Enabled() {
		t.Error("faults enabled without scope")
	}
	if _, ok := Next(); ok {
		t.Error("Next returned a fault while disabled")
	}
}

func TestCountsConsumed(t *testing.T) {
	t.Setenv("CODEX_FAULTS_SCOPE", "spec_kit")
	t.Setenv("CODEX_FAULTS", "429:1,timeout:2")
	t.Setenv("CODEX_FAULTS_429_RESET", "30")
	t.Setenv("CODEX_FAULTS_TIMEOUT_MS", "50")
	Reload()

	f, ok := Next()
	if !ok || f.Kind != RateLimit {
		t.Fatalf("first fault = %+v, %v, want 429", f, ok)
	}
	if f.ResetHint != 30*time.Second {
		t.Errorf("reset hint = %s, want 30s", f.ResetHint)
	}

	for i := 0; i < 2; i++ {
		f, ok = Next()
		if !ok || f.Kind != Timeout {
			t.Fatalf("fault %d = %+v, %v, want timeout", i+2, f, ok)
		}
		if f.TimeoutDur != 50*time.Millisecond {
			t.Errorf("timeout duration = %s, want 50ms", f.TimeoutDur)
		}
	}

	if _, ok = Next(); ok {
		t.Error("faults not exhausted after plan consumed")
	}
}

func TestResetHintFormats(t *testing.T) {
	if got := parseResetHint("now+45s"); got != 45*time.Second {
		t.Errorf("now+45s = %s", got)
	}
	if got := parseResetHint("12"); got != 12*time.Second {
		t.Errorf("12 = %s", got)
	}
	if got := parseResetHint("soon"); got != 0 {
		t.Errorf("garbage = %s, want 0", got)
	}
}
