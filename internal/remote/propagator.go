package remote

import (
	"context"
	"sync"
	"time"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
)

const defaultPushTimeout = 30 * time.Second

// Pusher uploads snapshots to the remote.
type Pusher interface {
	Push(ctx context.Context, projectID string, snap model.Snapshot) error
}

// Propagator pushes persisted snapshots to the remote in the background.
// When several snapshots for one project are queued only the latest is sent.
type Propagator struct {
	pusher    Pusher
	timeout   time.Duration
	onFailure func(projectID string, err error)
	onSuccess func(projectID string, snap model.Snapshot)

	mu      sync.Mutex
	pending map[string]model.Snapshot
	order   []string
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// PropagatorOption customizes a Propagator.
type PropagatorOption func(*Propagator)

// OnFailure registers fn to receive push failures.
func OnFailure(fn func(projectID string, err error)) PropagatorOption {
	return func(p *Propagator) { p.onFailure = fn }
}

// OnSuccess registers fn to receive pushed snapshots.
func OnSuccess(fn func(projectID string, snap model.Snapshot)) PropagatorOption {
	return func(p *Propagator) { p.onSuccess = fn }
}

// WithPushTimeout bounds each push.
func WithPushTimeout(d time.Duration) PropagatorOption {
	return func(p *Propagator) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPropagator starts a propagator with a single worker.
func NewPropagator(pusher Pusher, opts ...PropagatorOption) *Propagator {
	p := &Propagator{
		pusher:  pusher,
		timeout: defaultPushTimeout,
		pending: make(map[string]model.Snapshot),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Propagate queues snap for upload. It never blocks on the network.
// Snapshots handed in after Close are dropped.
func (p *Propagator) Propagate(projectID string, snap model.Snapshot) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logging.Warn("propagator closed, dropping snapshot", logging.Project(projectID))
		return
	}
	if _, queued := p.pending[projectID]; !queued {
		p.order = append(p.order, projectID)
	}
	p.pending[projectID] = snap.Clone()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.mu.Unlock()
}

// Close stops accepting work, drains the queue, and waits for the worker.
func (p *Propagator) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.wake)
	p.mu.Unlock()

	<-p.done
}

func (p *Propagator) run() {
	defer close(p.done)
	for range p.wake {
		p.drain()
	}
	p.drain()
}

func (p *Propagator) drain() {
	for {
		projectID, snap, ok := p.next()
		if !ok {
			return
		}
		p.push(projectID, snap)
	}
}

func (p *Propagator) next() (string, model.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return "", model.Snapshot{}, false
	}
	projectID := p.order[0]
	p.order = p.order[1:]
	snap := p.pending[projectID]
	delete(p.pending, projectID)
	return projectID, snap, true
}

func (p *Propagator) push(projectID string, snap model.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.pusher.Push(ctx, projectID, snap); err != nil {
		logging.Warn("propagation failed", logging.Project(projectID), logging.Err(err))
		if p.onFailure != nil {
			p.onFailure(projectID, err)
		}
		return
	}
	logging.Debug("snapshot propagated", logging.Project(projectID))
	if p.onSuccess != nil {
		p.onSuccess(projectID, snap)
	}
}
