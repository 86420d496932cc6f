package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedStrategy is returned when a merge is requested with a
	// strategy outside AllStrategies. It indicates a caller bug.
	ErrMalformedStrategy = errors.New("malformed merge strategy")

	// ErrSyncInProgress is returned when a sync or resolve is requested for a
	// project that already has one in flight.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Kind classifies an I/O failure surfaced by the orchestrator.
type Kind string

const (
	// KindNotFound means the project has no local snapshot.
	KindNotFound Kind = "not_found"
	// KindPersistence means a local write was rejected.
	KindPersistence Kind = "persistence"
	// KindTransport means a remote fetch, push or query failed.
	KindTransport Kind = "transport"
)

// OpError records a failed orchestrator operation.
type OpError struct {
	Kind      Kind
	Op        string
	ProjectID string
	Err       error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.ProjectID, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Reason returns the human-readable failure reason recorded in the status machine.
func (e *OpError) Reason() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("project %s has no local snapshot", e.ProjectID)
	case KindPersistence:
		return fmt.Sprintf("could not save project %s: %v", e.ProjectID, e.Err)
	case KindTransport:
		return fmt.Sprintf("could not reach the cloud copy of project %s: %v", e.ProjectID, e.Err)
	default:
		return e.Error()
	}
}
