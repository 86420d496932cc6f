// Package sync keeps a project's local snapshot and its cloud copy in
// agreement. It detects divergence between the two, surfaces it as
// ConflictData, merges on request, and drives the replication status.
//
// # Detection
//
// Detector.Detect compares two snapshots field by field and never consults
// timestamps. Free-text fields conflict when they differ; collections
// conflict when either side holds an item identifier the other lacks.
// Conflicts are reported in a fixed order so that repeated runs produce
// identical output:
//
//	description, revisionPrompt, history, stylingHistory.<bucket>..., wardrobe
//
// # Merging
//
// Merger.Merge resolves a pair of snapshots with one of three strategies:
//   - StrategySmart: newest text wins (local on a tie) and every collection
//     is unioned by identifier, so no item is lost
//   - StrategyPreferLocal: the local snapshot verbatim
//   - StrategyPreferRemote: the remote snapshot verbatim
//
// The merged snapshot is stamped with the merge time.
//
// # Orchestration
//
// Orchestrator ties detection and merging to a LocalStore and a
// RemoteReplica:
//
//	orch := sync.New(localStore, transport,
//	    sync.WithPropagator(propagator),
//	    sync.WithRemoteCache(remoteCache),
//	)
//	if err := orch.ForceSync(ctx, "proj-1"); err != nil {
//	    return err // only ErrSyncInProgress
//	}
//	if st := orch.State(); st.Conflict != nil {
//	    _ = orch.ResolveConflict(ctx, sync.StrategySmart)
//	}
//
// I/O failures are not returned; they move the status to Error with a
// human-readable reason that Retry can act on.
package sync
