// Package store provides the device-resident replica of project snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/klauern/snapsync/internal/model"
)

// ErrNotFound is returned when a project has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Store loads and saves whole project snapshots.
type Store interface {
	// Load returns the snapshot for projectID or ErrNotFound.
	Load(ctx context.Context, projectID string) (model.Snapshot, error)

	// Save replaces the snapshot for projectID.
	Save(ctx context.Context, projectID string, snap model.Snapshot) error

	// List returns the stored project identifiers in sorted order.
	List(ctx context.Context) ([]string, error)

	// Close releases underlying resources.
	Close() error
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]model.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]model.Snapshot)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, projectID string) (model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[projectID]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	return snap.Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, projectID string, snap model.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[projectID] = snap.Clone()
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.snaps))
	for id := range m.snaps {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
