package status

// Event is an input to the status machine.
type Event string

const (
	// EventConnectivityLost is raised when the remote becomes unreachable.
	EventConnectivityLost Event = "connectivity_lost"

	// EventConnectivityRestored is raised when the remote becomes reachable again.
	EventConnectivityRestored Event = "connectivity_restored"

	// EventForceSync starts a sync attempt.
	EventForceSync Event = "force_sync"

	// EventPersistSucceeded reports that a sync persisted its snapshot.
	EventPersistSucceeded Event = "persist_succeeded"

	// EventPersistFailed reports that a sync could not complete.
	EventPersistFailed Event = "persist_failed"

	// EventConflictDetected reports that the replicas diverged.
	EventConflictDetected Event = "conflict_detected"

	// EventResolveSucceeded reports that a resolved snapshot was persisted.
	EventResolveSucceeded Event = "resolve_succeeded"

	// EventResolveFailed reports that a resolution attempt failed.
	EventResolveFailed Event = "resolve_failed"

	// EventRetry requests a new attempt after a failure.
	EventRetry Event = "retry"

	// EventTransportFailed reports an asynchronous push or query failure.
	EventTransportFailed Event = "transport_failed"
)

// Transition returns the state reached from "from" when ev occurs.
// Pairs not covered by the table leave the state unchanged. Transition never
// produces Unknown from a known state.
func Transition(from Status, ev Event) Status {
	switch ev {
	case EventConnectivityLost:
		return Offline
	case EventConnectivityRestored:
		if from == Offline {
			return Synced
		}
	case EventForceSync:
		return Syncing
	case EventPersistSucceeded:
		if from == Syncing {
			return Synced
		}
	case EventPersistFailed:
		if from == Syncing {
			return Error
		}
	case EventConflictDetected:
		return Conflict
	case EventResolveSucceeded:
		if from != Offline {
			return Synced
		}
	case EventRetry:
		if from == Error {
			return Syncing
		}
	case EventTransportFailed:
		if from != Offline {
			return Error
		}
	}
	return from
}

// Reconstruct derives the status at session start from what survives a
// restart: connectivity and the presence of pending conflict or error data.
func Reconstruct(online, hasConflict, hasError bool) Status {
	switch {
	case !online:
		return Offline
	case hasConflict:
		return Conflict
	case hasError:
		return Error
	default:
		return Synced
	}
}

// Reconcile folds a status reported by the remote into the current one.
// States that carry pending local work are kept.
func Reconcile(current, reported Status) Status {
	switch current {
	case Conflict, Error, Syncing:
		return current
	}
	if !reported.IsValid() {
		return Unknown
	}
	return reported
}
