// Package status implements the replication status machine: the set of
// sync states, the pure transition function between them, and an observable
// tracker that records the last sync time and failure reason.
package status

import (
	"fmt"
	"strings"
)

// Status is the replication state of the local replica relative to the remote.
type Status int

const (
	// Synced means the last sync or resolution persisted successfully.
	Synced Status = iota
	// Syncing means a sync operation is in flight.
	Syncing
	// Offline means the remote replica is unreachable.
	Offline
	// Error means the last operation failed; a reason is recorded.
	Error
	// Conflict means the replicas diverged and a resolution strategy is awaited.
	Conflict
	// Unknown is the unclassified state.
	Unknown
)

var names = map[Status]string{
	Synced:   "synced",
	Syncing:  "syncing",
	Offline:  "offline",
	Error:    "error",
	Conflict: "conflict",
	Unknown:  "unknown",
}

// String returns the lower-case name of the status.
func (s Status) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return "unknown"
}

// IsValid returns true if the status is one of the declared values.
func (s Status) IsValid() bool {
	_, ok := names[s]
	return ok
}

// All returns every status in declaration order.
func All() []Status {
	return []Status{Synced, Syncing, Offline, Error, Conflict, Unknown}
}

// ParseStatus parses a status name. Unrecognized names map to Unknown.
func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	for st, n := range names {
		if n == s {
			return st
		}
	}
	return Unknown
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}
