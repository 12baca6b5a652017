// Package faults is the deterministic fault-injection hook used by the
// end-to-end tests. It is inert unless CODEX_FAULTS_SCOPE selects the
// spec-kit scope; every injected fault consumes one counter tick.
package faults

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Kind is an injectable fault.
type Kind string

const (
	Disconnect Kind = "disconnect"
	RateLimit  Kind = "429"
	Timeout    Kind = "timeout"
)

// Fault describes one injected failure.
type Fault struct {
	Kind       Kind
	ResetHint  time.Duration // rate-limit reset hint, zero when absent
	TimeoutDur time.Duration
}

type counters struct {
	disconnect atomic.Int64
	rateLimit  atomic.Int64
	timeout    atomic.Int64

	resetHint  time.Duration
	timeoutDur time.Duration
}

var (
	state     *counters
	initOnce  sync.Once
	resetLock sync.Mutex
)

// Enabled reports whether fault injection is active for this process.
func Enabled() bool {
	initOnce.Do(loadFromEnv)
	return state != nil
}

// Next consumes and returns the next pending fault, if any. Consumption is
// atomic: concurrent callers never double-spend a count.
func Next() (Fault, bool) {
	if !Enabled() {
		return Fault{}, false
	}
	if state.rateLimit.Add(-1) >= 0 {
		return Fault{Kind: RateLimit, ResetHint: state.resetHint}, true
	}
	state.rateLimit.Add(1)
	if state.timeout.Add(-1) >= 0 {
		return Fault{Kind: Timeout, TimeoutDur: state.timeoutDur}, true
	}
	state.timeout.Add(1)
	if state.disconnect.Add(-1) >= 0 {
		return Fault{Kind: Disconnect}, true
	}
	state.disconnect.Add(1)
	return Fault{}, false
}

// Reload re-reads the environment. Tests use this to change fault plans
// between cases.
func Reload() {
	resetLock.Lock()
	defer resetLock.Unlock()
	initOnce.Do(func() {})
	loadFromEnv()
}

func loadFromEnv() {
	scope := os.Getenv("CODEX_FAULTS_SCOPE")
	if scope != "spec_kit" && scope != "speckit" {
		state = nil
		return
	}
	plan := os.Getenv("CODEX_FAULTS")
	if plan == "" {
		state = nil
		return
	}

	c := &counters{resetHint: parseResetHint(os.Getenv("CODEX_FAULTS_429_RESET"))}
	if ms, err := strconv.Atoi(os.Getenv("CODEX_FAULTS_TIMEOUT_MS")); err == nil && ms > 0 {
		c.timeoutDur = time.Duration(ms) * time.Millisecond
	}

	for _, entry := range strings.Split(plan, ",") {
		kind, countRaw, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}
		count, err := strconv.Atoi(countRaw)
		if err != nil || count <= 0 {
			continue
		}
		switch Kind(kind) {
		case Disconnect:
			c.disconnect.Store(int64(count))
		case RateLimit:
			c.rateLimit.Store(int64(count))
		case Timeout:
			c.timeout.Store(int64(count))
		}
	}
	state = c
}

// parseResetHint accepts plain seconds ("30") or "now+30s".
func parseResetHint(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if rest, ok := strings.CutPrefix(raw, "now+"); ok {
		if secs, err := strconv.Atoi(strings.TrimSuffix(rest, "s")); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
