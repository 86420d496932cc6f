package backup

import (
	"os"
	"testing"
	"time"

	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/util"
)

func testStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(util.CreateTempDir(t))
	s.now = func() time.Time { return now }
	return s, &now
}

func snapshot(desc string, ids ...string) model.Snapshot {
	snap := model.Snapshot{UpdatedAt: time.UnixMilli(1_000).UTC(), Description: desc}
	for _, id := range ids {
		snap.History = append(snap.History, model.HistoryItem{ID: id})
	}
	return snap
}

func TestNewStoreDefaultDir(t *testing.T) {
	util.IsolatedHome(t)

	util.AssertEqual(t, NewStore("").Dir(), util.BackupsPath())
}

func TestCreateAndLoad(t *testing.T) {
	s, _ := testStore(t)

	meta, err := s.CreateBackup("proj-1", "local", "before prefer-remote resolution", snapshot("mine", "h1", "h2"))
	util.AssertNoError(t, err)

	util.AssertEqual(t, meta.ProjectID, "proj-1")
	util.AssertEqual(t, meta.Side, "local")
	util.AssertEqual(t, meta.Items, 2)
	if len(meta.Hash) != 64 {
		t.Errorf("Hash length = %d, want 64", len(meta.Hash))
	}
	if _, err := os.Stat(meta.BackupPath); err != nil {
		t.Errorf("backup file missing: %v", err)
	}

	snap, err := s.Load(meta.ID)
	util.AssertNoError(t, err)
	util.AssertEqual(t, snap.Description, "mine")
	util.AssertEqual(t, len(snap.History), 2)

	util.AssertNoError(t, s.Verify(meta.ID))
}

func TestLoadDetectsCorruption(t *testing.T) {
	s, _ := testStore(t)

	meta, err := s.CreateBackup("proj-1", "remote", "test", snapshot("theirs"))
	util.AssertNoError(t, err)

	if err := os.WriteFile(meta.BackupPath, []byte(`{"description":"tampered"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = s.Load(meta.ID)
	util.AssertErrorContains(t, err, "hash mismatch")
	util.AssertErrorContains(t, s.Verify(meta.ID), "hash mismatch")
}

func TestLoadUnknownBackup(t *testing.T) {
	s, _ := testStore(t)
	_, err := s.Load("nope")
	util.AssertErrorContains(t, err, `backup "nope" not found`)
}

func TestListFiltersAndOrders(t *testing.T) {
	s, now := testStore(t)

	_, err := s.CreateBackup("a", "local", "r", snapshot("1"))
	util.AssertNoError(t, err)
	*now = now.Add(time.Minute)
	_, err = s.CreateBackup("b", "local", "r", snapshot("2"))
	util.AssertNoError(t, err)
	*now = now.Add(time.Minute)
	newest, err := s.CreateBackup("a", "remote", "r", snapshot("3"))
	util.AssertNoError(t, err)

	all, err := s.List("")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(all), 3)
	util.AssertEqual(t, all[0].ID, newest.ID)

	onlyA, err := s.List("a")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(onlyA), 2)
	for _, m := range onlyA {
		util.AssertEqual(t, m.ProjectID, "a")
	}
}

func TestDelete(t *testing.T) {
	s, _ := testStore(t)

	meta, err := s.CreateBackup("a", "local", "r", snapshot("1"))
	util.AssertNoError(t, err)
	util.AssertNoError(t, s.Delete(meta.ID))

	if _, err := os.Stat(meta.BackupPath); !os.IsNotExist(err) {
		t.Error("backup file should be removed")
	}
	if err := s.Delete(meta.ID); err == nil {
		t.Error("second Delete() should fail")
	}
}

func TestDefaultCleanupOptions(t *testing.T) {
	opts := DefaultCleanupOptions()

	util.AssertEqual(t, opts.MaxBackups, 10)
	util.AssertEqual(t, opts.MaxAge, 30*24*time.Hour)
	util.AssertEqual(t, opts.KeepAtLeastOne, true)
	util.AssertEqual(t, opts.ProjectID, "")
}

func TestCleanup(t *testing.T) {
	tests := []struct {
		name        string
		opts        CleanupOptions
		wantDeleted int
		wantLeft    int
	}{
		{"count limit", CleanupOptions{MaxBackups: 2}, 2, 2},
		{"age limit keeps newest", CleanupOptions{MaxAge: time.Minute, KeepAtLeastOne: true}, 3, 1},
		{"age limit removes all", CleanupOptions{MaxAge: time.Minute}, 4, 0},
		{"dry run", CleanupOptions{MaxBackups: 1, DryRun: true}, 3, 4},
		{"other project untouched", CleanupOptions{MaxBackups: 1, ProjectID: "other"}, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, now := testStore(t)
			for i := range 4 {
				_, err := s.CreateBackup("p", "local", "r", snapshot(string(rune('a'+i))))
				util.AssertNoError(t, err)
				*now = now.Add(time.Hour)
			}

			deleted, err := s.Cleanup(tt.opts)
			util.AssertNoError(t, err)
			util.AssertEqual(t, len(deleted), tt.wantDeleted)

			left, err := s.List("")
			util.AssertNoError(t, err)
			util.AssertEqual(t, len(left), tt.wantLeft)
		})
	}
}

func TestStats(t *testing.T) {
	s, now := testStore(t)

	stats, err := s.Stats()
	util.AssertNoError(t, err)
	util.AssertEqual(t, stats.TotalBackups, 0)
	if !stats.OldestBackup.IsZero() {
		t.Error("OldestBackup should be zero with no backups")
	}

	first := *now
	_, err = s.CreateBackup("a", "local", "r", snapshot("1"))
	util.AssertNoError(t, err)
	*now = now.Add(time.Hour)
	_, err = s.CreateBackup("b", "remote", "r", snapshot("2"))
	util.AssertNoError(t, err)

	stats, err = s.Stats()
	util.AssertNoError(t, err)
	util.AssertEqual(t, stats.TotalBackups, 2)
	util.AssertEqual(t, stats.BackupsByProject["a"], 1)
	if !stats.OldestBackup.Equal(first) || !stats.NewestBackup.Equal(*now) {
		t.Errorf("range = %v..%v", stats.OldestBackup, stats.NewestBackup)
	}
	if stats.TotalSize <= 0 {
		t.Error("TotalSize should be positive")
	}
}
