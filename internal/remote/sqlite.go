package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/klauern/snapsync/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	project_id TEXT PRIMARY KEY,
	updated_at INTEGER NOT NULL,
	body       TEXT NOT NULL,
	stored_at  INTEGER NOT NULL
);`

// Record is a stored snapshot together with its bookkeeping columns.
type Record struct {
	ProjectID string
	Snapshot  model.Snapshot
	StoredAt  time.Time
}

// Repository is the server-side storage of remote snapshots.
type Repository interface {
	Get(ctx context.Context, projectID string) (Record, error)
	Put(ctx context.Context, projectID string, snap model.Snapshot) error
	List(ctx context.Context) ([]string, error)
}

// SQLiteRepository stores remote snapshots in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the repository database at path with WAL
// journaling and a busy timeout applied.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLiteMemory opens an in-memory repository closed on test cleanup.
func OpenSQLiteMemory(t testing.TB) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open in-memory repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// Get implements Repository.
func (r *SQLiteRepository) Get(ctx context.Context, projectID string) (Record, error) {
	var (
		body     string
		storedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT body, stored_at FROM snapshots WHERE project_id = ?`, projectID,
	).Scan(&body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	if err != nil {
		return Record{}, fmt.Errorf("query snapshot %s: %w", projectID, err)
	}

	rec := Record{ProjectID: projectID, StoredAt: time.UnixMilli(storedAt)}
	if err := json.Unmarshal([]byte(body), &rec.Snapshot); err != nil {
		return Record{}, fmt.Errorf("decode snapshot %s: %w", projectID, err)
	}
	return rec, nil
}

// Put implements Repository. A snapshot older than the stored one is
// rejected with ErrStale.
func (r *SQLiteRepository) Put(ctx context.Context, projectID string, snap model.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT updated_at FROM snapshots WHERE project_id = ?`, projectID,
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("query snapshot %s: %w", projectID, err)
	case snap.UpdatedAt.UnixMilli() < current:
		return fmt.Errorf("%w: %s", ErrStale, projectID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (project_id, updated_at, body, stored_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			body       = excluded.body,
			stored_at  = excluded.stored_at`,
		projectID, snap.UpdatedAt.UnixMilli(), string(body), r.now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("store snapshot %s: %w", projectID, err)
	}
	return tx.Commit()
}

// List implements Repository.
func (r *SQLiteRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT project_id FROM snapshots ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
