package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/remote"
	"github.com/klauern/snapsync/internal/status"
	"github.com/klauern/snapsync/internal/store"
)

// LocalStore is the device-resident replica.
type LocalStore interface {
	Load(ctx context.Context, projectID string) (model.Snapshot, error)
	Save(ctx context.Context, projectID string, snap model.Snapshot) error
}

// RemoteReplica is the read side of the cloud-resident replica.
type RemoteReplica interface {
	Fetch(ctx context.Context, projectID string) (model.Snapshot, error)
	QueryStatus(ctx context.Context, projectID string) (status.Status, error)
}

// Propagator forwards a persisted snapshot to the remote replica without
// waiting for the push to complete.
type Propagator interface {
	Propagate(projectID string, snap model.Snapshot)
}

// RemoteCache remembers the last remote snapshot seen per project.
type RemoteCache interface {
	Get(projectID string) (model.Snapshot, bool)
	Set(projectID string, snap model.Snapshot)
}

// Backups stores copies of snapshots before a destructive resolution.
type Backups interface {
	Create(projectID, side, reason string, snap model.Snapshot) error
}

// State is the observable replication state published to the presentation layer.
type State struct {
	Status   status.Status `json:"status"`
	LastSync time.Time     `json:"lastSync,omitzero"`
	Reason   string        `json:"reason,omitempty"`

	// Conflict is the pending divergence, if any. Treat as read-only.
	Conflict *ConflictData `json:"conflict,omitempty"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPropagator sets the component that pushes persisted snapshots upstream.
func WithPropagator(p Propagator) Option {
	return func(o *Orchestrator) { o.propagator = p }
}

// WithRemoteCache sets the best-known remote snapshot cache.
func WithRemoteCache(c RemoteCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithBackups enables backups before destructive resolutions.
func WithBackups(b Backups) Option {
	return func(o *Orchestrator) { o.backups = b }
}

// WithMerger replaces the default merge engine.
func WithMerger(m *Merger) Option {
	return func(o *Orchestrator) { o.merger = m }
}

// WithNow sets the clock used for last-sync bookkeeping.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator sequences detection, conflict surfacing, merging and
// persistence, and drives the status machine. It owns the pending
// ConflictData. I/O failures are recorded in the status machine rather than
// returned; only caller errors (ErrSyncInProgress, ErrMalformedStrategy)
// are returned.
type Orchestrator struct {
	local      LocalStore
	remote     RemoteReplica
	propagator Propagator
	cache      RemoteCache
	backups    Backups
	detector   *Detector
	merger     *Merger
	machine    *status.Machine
	now        func() time.Time

	mu          gosync.Mutex
	conflict    *ConflictData
	lastFailed  string
	inFlight    map[string]struct{}
	subscribers map[int]func(State)
	nextSub     int
}

// New creates an orchestrator in the Synced state.
func New(local LocalStore, remote RemoteReplica, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		local:       local,
		remote:      remote,
		detector:    NewDetector(),
		machine:     status.NewMachine(status.Synced),
		now:         time.Now,
		inFlight:    make(map[string]struct{}),
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.merger == nil {
		o.merger = NewMerger(WithClock(o.now))
	}
	return o
}

// State returns the current observable state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Subscribe registers fn to be called after every state change.
// The returned function removes the subscription.
func (o *Orchestrator) Subscribe(fn func(State)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subscribers, id)
	}
}

// Reconstruct restores the status at session start from connectivity and
// whatever conflict or error information is held.
func (o *Orchestrator) Reconstruct(online bool) {
	o.update(func() {
		cur := o.machine.Current()
		o.machine.Set(status.Reconstruct(online, o.conflict != nil, cur.Reason != ""))
	})
}

// ConnectivityChanged applies a connectivity event. Restoring connectivity
// only leaves Offline; it never clears Error or Conflict.
func (o *Orchestrator) ConnectivityChanged(online bool) {
	ev := status.EventConnectivityLost
	if online {
		ev = status.EventConnectivityRestored
	}
	logging.Info("connectivity changed", slog.Bool("online", online))
	o.update(func() { o.machine.Apply(ev) })
}

// ForceSync compares the local snapshot with the best-known remote one.
// Without divergence the local snapshot is persisted and the status becomes
// Synced; otherwise ConflictData is recorded and the status becomes Conflict.
func (o *Orchestrator) ForceSync(ctx context.Context, projectID string) error {
	if !o.acquire(projectID) {
		logging.Warn("sync request rejected", logging.Project(projectID), logging.Operation("force_sync"))
		return fmt.Errorf("%w: %s", ErrSyncInProgress, projectID)
	}
	defer o.release(projectID)

	if err := o.forceSync(ctx, projectID); err != nil {
		o.fail(projectID, status.EventPersistFailed, err)
	}
	return nil
}

// ResolveConflict merges the pending ConflictData with strategy and
// persists the result. It is a no-op when nothing is pending. On failure the
// ConflictData is kept so the resolution can be retried without re-diffing.
func (o *Orchestrator) ResolveConflict(ctx context.Context, strategy Strategy) error {
	o.mu.Lock()
	data := o.conflict
	o.mu.Unlock()

	if data == nil {
		logging.Debug("no pending conflict to resolve")
		return nil
	}
	if !strategy.IsValid() {
		return fmt.Errorf("%w: %q", ErrMalformedStrategy, strategy)
	}
	return o.resolve(ctx, data, strategy)
}

// resolve merges data once the project lock is held. It is a no-op when
// data is no longer the pending conflict.
func (o *Orchestrator) resolve(ctx context.Context, data *ConflictData, strategy Strategy) error {
	if !o.acquire(data.ProjectID) {
		return fmt.Errorf("%w: %s", ErrSyncInProgress, data.ProjectID)
	}
	defer o.release(data.ProjectID)

	// A sync that finished before the lock was taken may have replaced or
	// cleared data.
	o.mu.Lock()
	current := o.conflict
	o.mu.Unlock()
	if current != data {
		logging.Debug("pending conflict changed before resolution", logging.Project(data.ProjectID))
		return nil
	}

	defer logging.Timer("resolve_conflict")()
	log := operationLogger(data.ProjectID, "resolve_conflict").With(logging.Strategy(string(strategy)))

	if strategy.IsDestructive() && o.backups != nil {
		if err := o.backupSides(data, strategy); err != nil {
			o.fail(data.ProjectID, status.EventResolveFailed, &OpError{
				Kind: KindPersistence, Op: "backup", ProjectID: data.ProjectID, Err: err,
			})
			return nil
		}
	}

	merged, err := o.merger.Merge(data.Local, data.Remote, strategy)
	if err != nil {
		return err
	}

	if err := o.persist(ctx, data.ProjectID, merged); err != nil {
		o.fail(data.ProjectID, status.EventResolveFailed, err)
		return nil
	}

	at := o.now()
	o.update(func() {
		if o.conflict == data {
			o.conflict = nil
		}
		o.lastFailed = ""
		o.machine.Succeed(status.EventResolveSucceeded, at)
	})
	log.Info("conflict resolved", logging.Count(merged.ItemCount()))
	return nil
}

// Retry re-runs a force sync for the project of the pending ConflictData,
// or else for the project of the last failed operation. It is a no-op when
// neither exists. A failed retry of a pending conflict leaves the status at
// Conflict and only records the reason.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	projectID := o.lastFailed
	pending := o.conflict != nil
	if pending {
		projectID = o.conflict.ProjectID
	}
	o.mu.Unlock()

	if projectID == "" {
		logging.Debug("nothing to retry")
		return nil
	}
	if !o.acquire(projectID) {
		return fmt.Errorf("%w: %s", ErrSyncInProgress, projectID)
	}
	defer o.release(projectID)

	o.update(func() { o.machine.Apply(status.EventRetry) })
	err := o.forceSync(ctx, projectID)
	switch {
	case err == nil:
	case pending:
		o.update(func() { o.machine.Set(status.Conflict) })
		o.fail(projectID, status.EventResolveFailed, err)
	default:
		o.fail(projectID, status.EventPersistFailed, err)
	}
	return nil
}

// RefreshStatus asks the remote for its view of the project and folds it
// into the current status without running a full sync.
func (o *Orchestrator) RefreshStatus(ctx context.Context, projectID string) {
	reported, err := o.remote.QueryStatus(ctx, projectID)
	if err != nil {
		o.fail(projectID, status.EventTransportFailed, &OpError{
			Kind: KindTransport, Op: "query_status", ProjectID: projectID, Err: err,
		})
		return
	}
	o.update(func() {
		cur := o.machine.Current().Status
		o.machine.Set(status.Reconcile(cur, reported))
	})
}

// ReportTransportFailure records an asynchronous propagation failure.
func (o *Orchestrator) ReportTransportFailure(projectID string, err error) {
	o.fail(projectID, status.EventTransportFailed, &OpError{
		Kind: KindTransport, Op: "propagate", ProjectID: projectID, Err: err,
	})
}

// forceSync runs one sync attempt. Load, fetch and persist failures are
// returned for the caller to record.
func (o *Orchestrator) forceSync(ctx context.Context, projectID string) error {
	defer logging.Timer("force_sync")()
	log := operationLogger(projectID, "force_sync")

	o.update(func() { o.machine.Apply(status.EventForceSync) })

	local, err := o.local.Load(ctx, projectID)
	if err != nil {
		kind := KindPersistence
		if errors.Is(err, store.ErrNotFound) {
			kind = KindNotFound
		}
		return &OpError{Kind: kind, Op: "load", ProjectID: projectID, Err: err}
	}

	remoteSnap, err := o.bestKnownRemote(ctx, projectID, local)
	if err != nil {
		return err
	}

	if conflicts := o.detector.Detect(local, remoteSnap); len(conflicts) > 0 {
		data := &ConflictData{
			ProjectID:  projectID,
			Local:      local,
			Remote:     remoteSnap,
			Conflicts:  conflicts,
			DetectedAt: o.now(),
		}
		o.update(func() {
			o.conflict = data
			o.machine.Apply(status.EventConflictDetected)
		})
		log.Info("conflict detected, awaiting resolution", logging.Count(len(conflicts)))
		return nil
	}

	if err := o.persist(ctx, projectID, local); err != nil {
		return err
	}

	at := o.now()
	o.update(func() {
		o.conflict = nil
		o.lastFailed = ""
		o.machine.Succeed(status.EventPersistSucceeded, at)
	})
	log.Info("project synced")
	return nil
}

// bestKnownRemote fetches the remote snapshot, falling back to the cached
// copy when the transport is unreachable. A project the remote has never
// seen compares equal to the local snapshot.
func (o *Orchestrator) bestKnownRemote(ctx context.Context, projectID string, local model.Snapshot) (model.Snapshot, error) {
	snap, err := o.remote.Fetch(ctx, projectID)
	switch {
	case err == nil:
		if o.cache != nil {
			o.cache.Set(projectID, snap)
		}
		return snap, nil
	case errors.Is(err, remote.ErrNotFound):
		logging.Debug("project not on remote yet", logging.Project(projectID))
		return local, nil
	}

	if o.cache != nil {
		if cached, ok := o.cache.Get(projectID); ok {
			logging.Warn("remote unreachable, using cached snapshot",
				logging.Project(projectID),
				logging.Err(err),
			)
			return cached, nil
		}
	}
	return model.Snapshot{}, &OpError{Kind: KindTransport, Op: "fetch", ProjectID: projectID, Err: err}
}

// persist writes snap locally and hands it to the propagator.
func (o *Orchestrator) persist(ctx context.Context, projectID string, snap model.Snapshot) error {
	if err := o.local.Save(ctx, projectID, snap); err != nil {
		return &OpError{Kind: KindPersistence, Op: "save", ProjectID: projectID, Err: err}
	}
	if o.propagator != nil {
		o.propagator.Propagate(projectID, snap)
	}
	return nil
}

func (o *Orchestrator) backupSides(data *ConflictData, strategy Strategy) error {
	reason := fmt.Sprintf("before %s resolution", strategy)
	if err := o.backups.Create(data.ProjectID, "local", reason, data.Local); err != nil {
		return fmt.Errorf("backup local snapshot: %w", err)
	}
	if err := o.backups.Create(data.ProjectID, "remote", reason, data.Remote); err != nil {
		return fmt.Errorf("backup remote snapshot: %w", err)
	}
	return nil
}

// fail records err as the last failure reason and applies ev.
func (o *Orchestrator) fail(projectID string, ev status.Event, err error) {
	reason := err.Error()
	var opErr *OpError
	if errors.As(err, &opErr) {
		reason = opErr.Reason()
	}
	logging.Warn("sync operation failed",
		logging.Project(projectID),
		slog.String("event", string(ev)),
		logging.Err(err),
	)
	o.update(func() {
		o.lastFailed = projectID
		o.machine.Fail(ev, reason)
	})
}

func (o *Orchestrator) acquire(projectID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[projectID]; busy {
		return false
	}
	o.inFlight[projectID] = struct{}{}
	return true
}

func (o *Orchestrator) release(projectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, projectID)
}

// update runs fn under the lock and notifies subscribers afterwards.
func (o *Orchestrator) update(fn func()) {
	o.mu.Lock()
	fn()
	st := o.stateLocked()
	subs := slices.Collect(maps.Values(o.subscribers))
	o.mu.Unlock()

	for _, sub := range subs {
		sub(st)
	}
}

func (o *Orchestrator) stateLocked() State {
	cur := o.machine.Current()
	return State{
		Status:   cur.Status,
		LastSync: cur.LastSync,
		Reason:   cur.Reason,
		Conflict: o.conflict,
	}
}

func operationLogger(projectID, op string) *slog.Logger {
	return logging.With(
		logging.Project(projectID),
		logging.Operation(op),
		slog.String("sync_id", uuid.NewString()),
	)
}
