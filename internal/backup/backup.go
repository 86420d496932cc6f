// Package backup keeps copies of snapshots taken before a resolution that
// may discard data.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/util"
)

const (
	// BackupDirPerm is the permission for backup directories (rwxr-x---)
	BackupDirPerm = 0o750
	// BackupFilePerm is the permission for backup files (rw-r-----)
	BackupFilePerm = 0o640
)

// Store writes snapshot backups under a directory and tracks them in
// index.json.
type Store struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// NewStore creates a backup store rooted at dir.
// If dir is empty, defaults to ~/.snapsync/backups
func NewStore(dir string) *Store {
	if dir == "" {
		dir = util.BackupsPath()
	}
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the backup root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create backs up snap, taken from side of projectID, and records it in
// the index.
func (s *Store) Create(projectID, side, reason string, snap model.Snapshot) error {
	_, err := s.CreateBackup(projectID, side, reason, snap)
	return err
}

// CreateBackup is Create returning the recorded metadata.
func (s *Store) CreateBackup(projectID, side, reason string, snap model.Snapshot) (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	hash := sha256.Sum256(content)
	hashStr := hex.EncodeToString(hash[:])

	now := s.now()
	backupID := now.Format("20060102-150405-") + side + "-" + hashStr[:8]

	projectDir := filepath.Join(s.dir, projectID)
	if err := os.MkdirAll(projectDir, BackupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create project backup directory: %w", err)
	}

	backupPath := filepath.Join(projectDir, backupID+".json")
	if err := os.WriteFile(backupPath, content, BackupFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	metadata := &Metadata{
		ID:         backupID,
		ProjectID:  projectID,
		Side:       side,
		Reason:     reason,
		BackupPath: backupPath,
		CreatedAt:  now,
		SnapshotAt: snap.UpdatedAt,
		Hash:       hashStr,
		Size:       int64(len(content)),
		Items:      snap.ItemCount(),
	}

	index, err := loadIndex(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	if err := index.AddBackup(*metadata); err != nil {
		return nil, fmt.Errorf("failed to add backup to index: %w", err)
	}

	logging.Info("snapshot backed up",
		logging.Project(projectID),
		logging.Path(backupPath),
		logging.Operation("backup"),
	)
	return metadata, nil
}

// Load reads a backed-up snapshot, verifying its hash.
func (s *Store) Load(backupID string) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadata, err := s.lookup(backupID)
	if err != nil {
		return model.Snapshot{}, err
	}

	content, err := readVerified(metadata)
	if err != nil {
		return model.Snapshot{}, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to decode backup: %w", err)
	}
	return snap, nil
}

// List returns backups newest first, optionally filtered by project.
func (s *Store) List(projectID string) ([]Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := loadIndex(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	backups := index.ListBackups()
	if projectID == "" {
		return backups, nil
	}

	filtered := make([]Metadata, 0, len(backups))
	for _, backup := range backups {
		if backup.ProjectID == projectID {
			filtered = append(filtered, backup)
		}
	}
	return filtered, nil
}

// Delete removes a backup file and its index entry.
func (s *Store) Delete(backupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := loadIndex(s.dir)
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}
	return deleteBackup(index, backupID)
}

// Verify checks that a backup file is intact and matches its hash.
func (s *Store) Verify(backupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadata, err := s.lookup(backupID)
	if err != nil {
		return err
	}
	_, err = readVerified(metadata)
	return err
}

func (s *Store) lookup(backupID string) (Metadata, error) {
	index, err := loadIndex(s.dir)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to load backup index: %w", err)
	}
	metadata, exists := index.Backups[backupID]
	if !exists {
		return Metadata{}, fmt.Errorf("backup %q not found", backupID)
	}
	return metadata, nil
}

func deleteBackup(index *Index, backupID string) error {
	metadata, exists := index.Backups[backupID]
	if !exists {
		return fmt.Errorf("backup %q not found", backupID)
	}
	if err := os.Remove(metadata.BackupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}
	if err := index.RemoveBackup(backupID); err != nil {
		return fmt.Errorf("failed to remove backup from index: %w", err)
	}
	return nil
}

func readVerified(metadata Metadata) ([]byte, error) {
	content, err := os.ReadFile(metadata.BackupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup file missing: %s", metadata.BackupPath)
		}
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	hash := sha256.Sum256(content)
	if hashStr := hex.EncodeToString(hash[:]); hashStr != metadata.Hash {
		return nil, fmt.Errorf("backup file corrupted: hash mismatch (expected %s, got %s)", metadata.Hash, hashStr)
	}
	return content, nil
}
