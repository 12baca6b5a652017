package retry

import (
	"math/rand"
	"testing"
	"time"
)

func TestClassifyPermanent(t *testing.T) {
	cases := []struct {
		text   string
		reason Reason
	}{
		{"Invalid API key provided", ReasonAuthFailed},
		{"server returned 401 Unauthorized", ReasonAuthFailed},
		{"model not found", ReasonNotFound},
		{"HTTP 404", ReasonNotFound},
		{"monthly quota exceeded", ReasonInvalidInput},
	}
	for _, c := range cases {
		got := Classify(c.text, "")
		if got.Class != Permanent {
			t.Errorf("Classify(%q).Class = %s, want permanent", c.text, got.Class)
		}
		if got.Reason != c.reason {
			t.Errorf("Classify(%q).Reason = %s, want %s", c.text, got.Reason, c.reason)
		}
	}
}

func TestClassifyRetryable(t *testing.T) {
	cases := []struct {
		text   string
		reason Reason
	}{
		{"request timed out", ReasonNetworkTimeout},
		{"connection refused", ReasonConnectionRefused},
		{"connection reset by peer", ReasonConnectionRefused},
		{"HTTP 503 service unavailable", ReasonServiceUnavailable},
		{"upstream overloaded", ReasonServiceUnavailable},
		{"database is locked", ReasonDatabaseLocked},
		{"something entirely new went wrong", ReasonServiceUnavailable},
	}
	for _, c := range cases {
		got := Classify(c.text, "")
		if got.Class != Retryable {
			t.Errorf("Classify(%q).Class = %s, want retryable", c.text, got.Class)
		}
		if got.Reason != c.reason {
			t.Errorf("Classify(%q).Reason = %s, want %s", c.text, got.Reason, c.reason)
		}
	}
}

func TestClassifyRateLimit(t *testing.T) {
	got := Classify("429 rate limit exceeded", "")
	if got.Reason != ReasonRateLimited {
		t.Fatalf("Reason = %s, want rate_limited", got.Reason)
	}
	if got.RetryAfter != DefaultRateLimitBackoff {
		t.Errorf("RetryAfter = %s, want %s", got.RetryAfter, DefaultRateLimitBackoff)
	}

	hinted := Classify("rate limit, retry-after: 30", "")
	if hinted.RetryAfter != 30*time.Second {
		t.Errorf("hinted RetryAfter = %s, want 30s", hinted.RetryAfter)
	}
}

func TestClassifyStderrConsidered(t *testing.T) {
	got := Classify("exit status 1", "stderr: invalid api key")
	if got.Class != Permanent || got.Reason != ReasonAuthFailed {
		t.Errorf("stderr classification = %s/%s, want permanent/auth_failed", got.Class, got.Reason)
	}
}

func TestBackoffSchedule(t *testing.T) {
	cfg := DefaultConfig()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := cfg.Backoff(i+1, 0); got != w {
			t.Errorf("Backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestBackoffCapAndFloor(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Backoff(20, 0); got != cfg.MaxBackoff {
		t.Errorf("Backoff(20) = %s, want cap %s", got, cfg.MaxBackoff)
	}
	// A rate-limit hint raises the floor above the exponential schedule.
	if got := cfg.Backoff(1, time.Minute); got != time.Minute {
		t.Errorf("Backoff with floor = %s, want 1m", got)
	}
}

func TestJitterBounds(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := cfg.Jitter(base, rng)
		if j < base || j > base+base/2 {
			t.Fatalf("Jitter out of [100ms, 150ms]: %s", j)
		}
	}
}

func TestShouldRetryBounds(t *testing.T) {
	cfg := DefaultConfig()
	retryable := Classification{Class: Retryable}
	if !cfg.ShouldRetry(retryable, 1) || !cfg.ShouldRetry(retryable, 2) {
		t.Error("attempts 1 and 2 should allow retry")
	}
	if cfg.ShouldRetry(retryable, 3) {
		t.Error("attempt 3 must not retry (max 3 attempts)")
	}
	if cfg.ShouldRetry(Classification{Class: Permanent}, 1) {
		t.Error("permanent errors must not retry")
	}
}

func TestAgentErrorMessage(t *testing.T) {
	err := NewAgentError("Invalid API key", "")
	if err.Class != Permanent {
		t.Fatalf("Class = %s, want permanent", err.Class)
	}
	if got := err.Error(); got != "permanent (auth_failed): Invalid API key" {
		t.Errorf("Error() = %q", got)
	}
}
