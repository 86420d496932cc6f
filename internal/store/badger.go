package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
)

const (
	snapshotPrefix = "snapshot/"

	defaultValueLogFileSize = 64 << 20
)

// BadgerStore persists snapshots in a Badger key-value database.
type BadgerStore struct {
	db *badger.DB
}

type badgerConfig struct {
	inMemory         bool
	valueLogFileSize int64
}

// BadgerOption customizes how Badger is opened.
type BadgerOption func(*badgerConfig) error

// WithInMemory opens Badger without touching disk. The path is ignored.
func WithInMemory() BadgerOption {
	return func(cfg *badgerConfig) error {
		cfg.inMemory = true
		return nil
	}
}

// WithValueLogFileSize sets the maximum size of each value log file.
func WithValueLogFileSize(sizeBytes int64) BadgerOption {
	return func(cfg *badgerConfig) error {
		if sizeBytes <= 0 {
			return fmt.Errorf("badger value log file size must be > 0, got %d", sizeBytes)
		}
		cfg.valueLogFileSize = sizeBytes
		return nil
	}
}

// OpenBadger opens (or creates) a Badger-backed store at path.
func OpenBadger(path string, options ...BadgerOption) (*BadgerStore, error) {
	cfg := badgerConfig{valueLogFileSize: defaultValueLogFileSize}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(&cfg); err != nil {
			return nil, err
		}
	}

	opts := badger.DefaultOptions(path)
	if cfg.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithValueLogFileSize(cfg.valueLogFileSize)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	logging.Debug("opened local store", logging.Path(path), logging.Operation("open_store"))
	return &BadgerStore{db: db}, nil
}

func snapshotKey(projectID string) []byte {
	return []byte(snapshotPrefix + projectID)
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context, projectID string) (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(projectID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, projectID)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			snap, err = decodeSnapshot(val)
			return err
		})
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Save implements Store.
func (s *BadgerStore) Save(_ context.Context, projectID string, snap model.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(projectID), data)
	}); err != nil {
		return fmt.Errorf("save snapshot %s: %w", projectID, err)
	}
	return nil
}

// List implements Store.
func (s *BadgerStore) List(_ context.Context) ([]string, error) {
	var ids []string
	prefix := []byte(snapshotPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ids = append(ids, string(bytes.TrimPrefix(key, prefix)))
		}
		return nil
	})
	return ids, err
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
