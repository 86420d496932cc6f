package backup

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Metadata contains metadata about a single backup
type Metadata struct {
	ID         string    `json:"id"`          // Unique backup identifier (timestamp-based)
	ProjectID  string    `json:"project_id"`  // Project the snapshot belongs to
	Side       string    `json:"side"`        // Replica the snapshot came from (local, remote)
	Reason     string    `json:"reason"`      // Why the backup was taken
	BackupPath string    `json:"backup_path"` // Path to backup file
	CreatedAt  time.Time `json:"created_at"`  // Backup creation timestamp
	SnapshotAt time.Time `json:"snapshot_at"` // UpdatedAt of the backed-up snapshot
	Hash       string    `json:"hash"`        // SHA256 hash of content
	Size       int64     `json:"size"`        // File size in bytes
	Items      int       `json:"items"`       // Number of collection items in the snapshot
}

// Index maintains an index of all backups
type Index struct {
	Version string              `json:"version"`
	Updated time.Time           `json:"updated"`
	Backups map[string]Metadata `json:"backups"` // Key: backup ID

	path string
}

const (
	// IndexVersion is the current version of the backup index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

// loadIndex loads the backup index kept in dir.
func loadIndex(dir string) (*Index, error) {
	indexPath := filepath.Join(dir, IndexFilename)

	// #nosec G304 - indexPath is constructed from the configured backup directory
	data, err := os.ReadFile(indexPath)
	if os.IsNotExist(err) {
		return &Index{
			Version: IndexVersion,
			Updated: time.Now(),
			Backups: make(map[string]Metadata),
			path:    indexPath,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	if index.Backups == nil {
		index.Backups = make(map[string]Metadata)
	}
	index.path = indexPath
	return &index, nil
}

// save writes the index back to disk.
func (idx *Index) save() error {
	if err := os.MkdirAll(filepath.Dir(idx.path), BackupDirPerm); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	idx.Updated = time.Now()

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	// #nosec G306 - index.json is metadata and can be group-readable
	if err := os.WriteFile(idx.path, data, BackupFilePerm); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// AddBackup adds a backup entry to the index and saves it
func (idx *Index) AddBackup(metadata Metadata) error {
	idx.Backups[metadata.ID] = metadata
	return idx.save()
}

// RemoveBackup removes a backup entry from the index and saves it
func (idx *Index) RemoveBackup(id string) error {
	delete(idx.Backups, id)
	return idx.save()
}

// ListBackups returns all backups sorted by creation time (newest first)
func (idx *Index) ListBackups() []Metadata {
	backups := make([]Metadata, 0, len(idx.Backups))
	for _, backup := range idx.Backups {
		backups = append(backups, backup)
	}
	sortNewestFirst(backups)
	return backups
}

func sortNewestFirst(backups []Metadata) {
	slices.SortFunc(backups, func(a, b Metadata) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
