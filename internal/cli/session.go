package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klauern/snapsync/internal/backup"
	"github.com/klauern/snapsync/internal/cache"
	"github.com/klauern/snapsync/internal/config"
	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/remote"
	"github.com/klauern/snapsync/internal/store"
	"github.com/klauern/snapsync/internal/sync"
)

// session wires the local store, remote transport and orchestrator for a
// single command invocation.
type session struct {
	cfg        *config.Config
	store      store.Store
	transport  remote.Transport
	propagator *remote.Propagator
	cache      *cache.Cache
	backups    *backup.Store
	orch       *sync.Orchestrator
}

// openSession builds a session from cfg. Callers must Close it.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	local, err := openStore(cfg.Local)
	if err != nil {
		return nil, err
	}

	transport, err := newTransport(ctx, cfg.Remote)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	s := &session{cfg: cfg, store: local, transport: transport}

	var opts []sync.Option
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache.Location)
		if err != nil {
			_ = local.Close()
			return nil, fmt.Errorf("open remote cache: %w", err)
		}
		if pruned := c.Prune(cfg.Cache.TTL); pruned > 0 {
			logging.Debug("pruned remote cache", logging.Count(pruned))
		}
		s.cache = c
		opts = append(opts, sync.WithRemoteCache(c))
	}
	if cfg.Backup.Enabled {
		s.backups = backup.NewStore(cfg.Backup.Location)
		opts = append(opts, sync.WithBackups(s.backups))
	}

	propagatorOpts := []remote.PropagatorOption{
		remote.OnFailure(s.propagationFailed),
	}
	if cfg.Remote.Timeout > 0 {
		propagatorOpts = append(propagatorOpts, remote.WithPushTimeout(cfg.Remote.Timeout))
	}
	if s.cache != nil {
		propagatorOpts = append(propagatorOpts, remote.OnSuccess(s.cache.Set))
	}
	s.propagator = remote.NewPropagator(transport, propagatorOpts...)
	opts = append(opts, sync.WithPropagator(s.propagator))

	s.orch = sync.New(local, transport, opts...)
	return s, nil
}

// propagationFailed feeds asynchronous push failures back into the status
// machine. A stale push means the remote already holds a newer snapshot,
// which the next sync compares against, so it is not an error.
func (s *session) propagationFailed(projectID string, err error) {
	if errors.Is(err, remote.ErrStale) {
		logging.Warn("remote holds a newer snapshot, skipping push",
			logging.Project(projectID), logging.Err(err))
		return
	}
	s.orch.ReportTransportFailure(projectID, err)
}

// Close drains pending pushes, saves the cache and closes the store.
func (s *session) Close() error {
	s.propagator.Close()

	var errs []error
	if s.cache != nil {
		if err := s.cache.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save remote cache: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close local store: %w", err))
	}
	return errors.Join(errs...)
}

// reconstruct probes the remote and restores the session-start status.
func (s *session) reconstruct(ctx context.Context) bool {
	timeout := s.cfg.Connectivity.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	online := s.transport.Ping(pingCtx) == nil
	s.orch.Reconstruct(online)
	return online
}

func openStore(cfg config.LocalConfig) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		s, err := store.OpenBadger(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open local store %s: %w", cfg.Path, err)
		}
		return s, nil
	}
}

func newTransport(ctx context.Context, cfg config.RemoteConfig) (remote.Transport, error) {
	switch cfg.Kind {
	case "s3":
		return remote.NewS3Transport(ctx, remote.S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	case "memory":
		return remote.NewMemoryTransport(), nil
	default:
		var opts []remote.HTTPOption
		if cfg.Token != "" {
			opts = append(opts, remote.WithToken(cfg.Token))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, remote.WithTimeout(cfg.Timeout))
		}
		return remote.NewHTTPTransport(cfg.URL, opts...)
	}
}
