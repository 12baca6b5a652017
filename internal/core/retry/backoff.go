package retry

import (
	"math/rand"
	"time"
)

// Config bounds the retry loop.
type Config struct {
	MaxAttempts  int
	BaseBackoff  time.Duration
	Multiplier   float64
	MaxBackoff   time.Duration
	JitterFactor float64
}

// DefaultConfig matches the pipeline-wide retry policy: 3 attempts,
// 100ms -> 200ms -> 400ms, capped at 10s, with 0.5 additive jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		BaseBackoff:  100 * time.Millisecond,
		Multiplier:   2.0,
		MaxBackoff:   10 * time.Second,
		JitterFactor: 0.5,
	}
}

// Backoff returns the base delay before the given attempt (1-based: the delay
// taken after attempt n fails), before jitter, honoring any rate-limit floor.
func (c Config) Backoff(attempt int, floor time.Duration) time.Duration {
	d := c.BaseBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d > c.MaxBackoff {
			d = c.MaxBackoff
			break
		}
	}
	if d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	if floor > d {
		d = floor
	}
	return d
}

// Jitter adds uniform additive jitter over [0, d*JitterFactor]. rng may be
// seeded by tests for determinism; nil uses the shared source.
func (c Config) Jitter(d time.Duration, rng *rand.Rand) time.Duration {
	if c.JitterFactor <= 0 {
		return d
	}
	span := float64(d) * c.JitterFactor
	var extra float64
	if rng != nil {
		extra = rng.Float64() * span
	} else {
		extra = rand.Float64() * span
	}
	return d + time.Duration(extra)
}

// ShouldRetry decides whether another attempt is allowed after a failure on
// the given 1-based attempt number.
func (c Config) ShouldRetry(cls Classification, attempt int) bool {
	if cls.Class != Retryable {
		return false
	}
	return attempt < c.MaxAttempts
}
