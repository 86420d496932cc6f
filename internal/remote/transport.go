// Package remote provides access to the cloud-resident replica: transports
// that fetch and push snapshots, the asynchronous propagator used after a
// local write, and the HTTP server that hosts the replica.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/status"
)

var (
	// ErrNotFound is returned when the remote holds no snapshot for a project.
	ErrNotFound = errors.New("remote snapshot not found")

	// ErrStale is returned when a push carries an UpdatedAt older than the
	// snapshot already held by the remote.
	ErrStale = errors.New("remote snapshot is newer")
)

// Transport is the contract every remote backend satisfies.
type Transport interface {
	// Fetch returns the remote snapshot or ErrNotFound.
	Fetch(ctx context.Context, projectID string) (model.Snapshot, error)

	// Push replaces the remote snapshot.
	Push(ctx context.Context, projectID string, snap model.Snapshot) error

	// QueryStatus reports the remote's view of the project.
	QueryStatus(ctx context.Context, projectID string) (status.Status, error)

	// Ping checks that the remote is reachable.
	Ping(ctx context.Context) error
}

// Error represents a failed remote operation with context about the project.
type Error struct {
	// Op is the operation that failed (fetch, push, status, ping).
	Op string

	// ProjectID is the project involved, if any.
	ProjectID string

	// StatusCode is the HTTP status returned by the remote, if any.
	StatusCode int

	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.ProjectID != "" && e.StatusCode != 0:
		return fmt.Sprintf("remote.%s %s: status %d: %v", e.Op, e.ProjectID, e.StatusCode, e.Err)
	case e.ProjectID != "":
		return fmt.Sprintf("remote.%s %s: %v", e.Op, e.ProjectID, e.Err)
	default:
		return fmt.Sprintf("remote.%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, projectID string, err error) *Error {
	return &Error{Op: op, ProjectID: projectID, Err: err}
}
