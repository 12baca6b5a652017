package config

import (
	"context"
	"os"
	"sync"
	"time"
)

// ReloadStatus reports the outcome of one reload attempt.
type ReloadStatus struct {
	Applied   bool
	Preserved bool // previous config kept after a failed validation
	Deferred  bool // reload postponed while the pipeline was busy
	Err       error
}

// Watcher polls the config file, debounces changes, and applies validated
// reloads. While the pipeline reports busy (a quality gate is active or an
// agent is executing) reloads are deferred to the next poll.
type Watcher struct {
	dir      string
	interval time.Duration
	debounce time.Duration

	mu      sync.RWMutex
	current *Config
	modTime time.Time

	busyFn   func() bool
	onReload func(ReloadStatus)
}

// NewWatcher creates a watcher seeded with the given config. busyFn may be
// nil (never busy); onReload may be nil.
func NewWatcher(dir string, seed *Config, busyFn func() bool, onReload func(ReloadStatus)) *Watcher {
	return &Watcher{
		dir:      dir,
		interval: 500 * time.Millisecond,
		debounce: 2 * time.Second,
		current:  seed,
		busyFn:   busyFn,
		onReload: onReload,
	}
}

// Current returns the active configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var pendingSince time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(Path(w.dir))
		if err != nil {
			continue
		}
		w.mu.RLock()
		known := w.modTime
		w.mu.RUnlock()

		if !info.ModTime().After(known) {
			continue
		}
		if pendingSince.IsZero() {
			pendingSince = time.Now()
			continue
		}
		if time.Since(pendingSince) < w.debounce {
			continue
		}

		status := w.tryReload(info.ModTime())
		if !status.Deferred {
			pendingSince = time.Time{}
		}
		if w.onReload != nil {
			w.onReload(status)
		}
	}
}

// tryReload applies a pending change unless the pipeline is busy.
func (w *Watcher) tryReload(modTime time.Time) ReloadStatus {
	if w.busyFn != nil && w.busyFn() {
		return ReloadStatus{Deferred: true}
	}

	cfg, err := Load(w.dir)
	if err != nil {
		// Keep the previous config; record the mod time so a broken file
		// is not re-reported every poll.
		w.mu.Lock()
		w.modTime = modTime
		w.mu.Unlock()
		return ReloadStatus{Preserved: true, Err: err}
	}

	w.mu.Lock()
	w.current = cfg
	w.modTime = modTime
	w.mu.Unlock()
	return ReloadStatus{Applied: true}
}
