package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/status"
)

// ErrUnreachable is returned by MemoryTransport while it is offline.
var ErrUnreachable = errors.New("remote unreachable")

// MemoryTransport is an in-process remote replica. It backs tests and the
// --ephemeral CLI mode.
type MemoryTransport struct {
	mu      sync.Mutex
	snaps   map[string]model.Snapshot
	offline bool
	pushErr error
	pushes  int
}

// NewMemoryTransport creates an empty in-memory remote.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{snaps: make(map[string]model.Snapshot)}
}

// SetOffline makes every call fail with ErrUnreachable until reset.
func (m *MemoryTransport) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailPushes makes Push return err; nil restores normal behavior.
func (m *MemoryTransport) FailPushes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushErr = err
}

// Pushes returns how many pushes succeeded.
func (m *MemoryTransport) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}

// Seed stores snap without going through Push.
func (m *MemoryTransport) Seed(projectID string, snap model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[projectID] = snap.Clone()
}

// Fetch implements Transport.
func (m *MemoryTransport) Fetch(_ context.Context, projectID string) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return model.Snapshot{}, newError("fetch", projectID, ErrUnreachable)
	}
	snap, ok := m.snaps[projectID]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	return snap.Clone(), nil
}

// Push implements Transport.
func (m *MemoryTransport) Push(_ context.Context, projectID string, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return newError("push", projectID, ErrUnreachable)
	}
	if m.pushErr != nil {
		return newError("push", projectID, m.pushErr)
	}
	m.snaps[projectID] = snap.Clone()
	m.pushes++
	return nil
}

// QueryStatus implements Transport.
func (m *MemoryTransport) QueryStatus(_ context.Context, projectID string) (status.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return status.Unknown, newError("status", projectID, ErrUnreachable)
	}
	if _, ok := m.snaps[projectID]; ok {
		return status.Synced, nil
	}
	return status.Unknown, nil
}

// Ping implements Transport.
func (m *MemoryTransport) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return newError("ping", "", ErrUnreachable)
	}
	return nil
}
