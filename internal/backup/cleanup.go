package backup

import (
	"fmt"
	"time"
)

// CleanupOptions configures backup cleanup behavior
type CleanupOptions struct {
	// MaxBackups limits the number of backups kept per project and side (0 = unlimited)
	MaxBackups int

	// MaxAge is the maximum age of backups to keep (0 = unlimited)
	MaxAge time.Duration

	// KeepAtLeastOne ensures at least one backup is kept per project and side
	KeepAtLeastOne bool

	// ProjectID filters cleanup to a single project (empty = all projects)
	ProjectID string

	// DryRun previews what would be deleted without actually deleting
	DryRun bool
}

// DefaultCleanupOptions returns sensible defaults for cleanup
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MaxBackups:     10,
		MaxAge:         30 * 24 * time.Hour,
		KeepAtLeastOne: true,
	}
}

// Cleanup removes old backups based on opts and returns the removed IDs.
func (s *Store) Cleanup(opts CleanupOptions) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := loadIndex(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	groups := make(map[string][]Metadata)
	for _, backup := range index.Backups {
		if opts.ProjectID != "" && backup.ProjectID != opts.ProjectID {
			continue
		}
		key := backup.ProjectID + ":" + backup.Side
		groups[key] = append(groups[key], backup)
	}

	var toDelete []string
	now := s.now()

	for _, group := range groups {
		sortNewestFirst(group)

		var groupDelete []string
		for i, backup := range group {
			tooOld := opts.MaxAge > 0 && now.Sub(backup.CreatedAt) > opts.MaxAge
			overLimit := opts.MaxBackups > 0 && i >= opts.MaxBackups
			if tooOld || overLimit {
				groupDelete = append(groupDelete, backup.ID)
			}
		}

		// Keep the newest backup when everything in the group would go.
		if opts.KeepAtLeastOne && len(groupDelete) == len(group) && len(groupDelete) > 0 {
			groupDelete = groupDelete[1:]
		}
		toDelete = append(toDelete, groupDelete...)
	}

	if opts.DryRun {
		return toDelete, nil
	}

	var deleted []string
	for _, backupID := range toDelete {
		if err := deleteBackup(index, backupID); err != nil {
			return deleted, fmt.Errorf("failed to delete backup %q: %w", backupID, err)
		}
		deleted = append(deleted, backupID)
	}
	return deleted, nil
}

// Stats contains statistics about backups
type Stats struct {
	TotalBackups     int
	TotalSize        int64
	BackupsByProject map[string]int
	OldestBackup     time.Time
	NewestBackup     time.Time
}

// Stats returns statistics about the stored backups.
func (s *Store) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := loadIndex(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	stats := &Stats{
		TotalBackups:     len(index.Backups),
		BackupsByProject: make(map[string]int),
	}
	for _, backup := range index.Backups {
		stats.TotalSize += backup.Size
		stats.BackupsByProject[backup.ProjectID]++
		if stats.OldestBackup.IsZero() || backup.CreatedAt.Before(stats.OldestBackup) {
			stats.OldestBackup = backup.CreatedAt
		}
		if backup.CreatedAt.After(stats.NewestBackup) {
			stats.NewestBackup = backup.CreatedAt
		}
	}
	return stats, nil
}
