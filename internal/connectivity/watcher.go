// Package connectivity watches whether the remote replica is reachable and
// reports changes to the sync orchestrator.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/klauern/snapsync/internal/logging"
)

// Probe checks reachability; a nil error means online.
type Probe func(ctx context.Context) error

// Watcher polls a Probe and calls its change handler whenever the
// online/offline verdict flips. It goes offline only after a run of
// consecutive failed probes.
type Watcher struct {
	probe     Probe
	onChange  func(online bool)
	interval  time.Duration
	timeout   time.Duration
	threshold int

	mu       sync.Mutex
	known    bool
	online   bool
	failures int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets how often the probe runs.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithProbeTimeout bounds a single probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithFailureThreshold sets how many consecutive failures mean offline.
func WithFailureThreshold(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.threshold = n
		}
	}
}

// NewWatcher creates a watcher with a 30s interval, 5s probe timeout and a
// threshold of 2 failures.
func NewWatcher(probe Probe, onChange func(online bool), opts ...Option) *Watcher {
	w := &Watcher{
		probe:     probe,
		onChange:  onChange,
		interval:  30 * time.Second,
		timeout:   5 * time.Second,
		threshold: 2,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Online returns the last verdict. Before the first check it reports false.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Check runs the probe once and returns the resulting verdict. The first
// check always notifies so the caller learns the initial state.
func (w *Watcher) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.probe(probeCtx)
	cancel()

	w.mu.Lock()
	prev, known := w.online, w.known
	switch {
	case err == nil:
		w.failures = 0
		w.online = true
	default:
		w.failures++
		if !known || w.failures >= w.threshold {
			w.online = false
		}
	}
	w.known = true
	online := w.online
	w.mu.Unlock()

	if err != nil {
		logging.Debug("connectivity probe failed", logging.Err(err))
	}
	if (!known || prev != online) && w.onChange != nil {
		logging.Debug("connectivity verdict changed", slog.Bool("online", online))
		w.onChange(online)
	}
	return online
}

// Run checks immediately and then at every interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	logging.Debug("connectivity watcher started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			logging.Debug("connectivity watcher stopped")
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
