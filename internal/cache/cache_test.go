package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/util"
)

func testSnapshot(desc string) model.Snapshot {
	return model.Snapshot{
		UpdatedAt:   time.UnixMilli(1_700_000_000_000).UTC(),
		Description: desc,
		History:     []model.HistoryItem{{ID: "h1", Prompt: "first"}},
	}
}

func TestNew(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cache.Version != cacheVersion {
		t.Errorf("cache.Version = %q, want %q", cache.Version, cacheVersion)
	}
	if cache.Size() != 0 {
		t.Errorf("cache.Size() = %d, want 0", cache.Size())
	}
}

func TestNewWithEmptyCacheDirUsesDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(util.HomeEnv, tmpDir)

	cache, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "cache", cacheFileName)
	if cache.path != expectedPath {
		t.Errorf("cache.path = %q, want %q", cache.path, expectedPath)
	}
}

func TestCacheSetAndGet(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cache.Set("proj-1", testSnapshot("remote copy"))

	got, ok := cache.Get("proj-1")
	if !ok {
		t.Fatal("cache.Get() should return true for existing key")
	}
	if got.Description != "remote copy" {
		t.Errorf("Description = %q, want %q", got.Description, "remote copy")
	}

	got.History[0].ID = "mutated"
	again, _ := cache.Get("proj-1")
	if again.History[0].ID != "h1" {
		t.Error("cache.Get() returned shared storage")
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("cache.Get() should return false for non-existent key")
	}
}

func TestCacheSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cache.Set("proj-1", testSnapshot("persisted"))
	if err := cache.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := New(dir)
	if err != nil {
		t.Fatalf("New() reload error = %v", err)
	}
	got, ok := reloaded.Get("proj-1")
	if !ok {
		t.Fatal("reloaded cache lost entry")
	}
	if got.Description != "persisted" {
		t.Errorf("Description = %q, want %q", got.Description, "persisted")
	}
	if !got.UpdatedAt.Equal(testSnapshot("").UpdatedAt) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}
}

func TestCacheInvalidatesOnVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	data := `{"version":"0.1","entries":{"proj-1":{"snapshot":{"description":"old"}}}}`
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cache.Size() != 0 {
		t.Errorf("cache.Size() = %d, want 0 after version mismatch", cache.Size())
	}
}

func TestCacheCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cache.Size() != 0 {
		t.Errorf("cache.Size() = %d, want 0", cache.Size())
	}
}

func TestCachePrune(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now.Add(-48 * time.Hour) }
	cache.Set("old", testSnapshot("old"))
	cache.now = func() time.Time { return now }
	cache.Set("fresh", testSnapshot("fresh"))

	if pruned := cache.Prune(24 * time.Hour); pruned != 1 {
		t.Errorf("Prune() = %d, want 1", pruned)
	}
	if _, ok := cache.Get("old"); ok {
		t.Error("stale entry should be pruned")
	}
	if _, ok := cache.Get("fresh"); !ok {
		t.Error("fresh entry should remain")
	}
}

func TestCacheClear(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear() on unsaved cache error = %v", err)
	}

	cache.Set("proj-1", testSnapshot("x"))
	if err := cache.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cache.Size() != 0 {
		t.Errorf("cache.Size() = %d, want 0", cache.Size())
	}
	if _, err := os.Stat(cache.path); !os.IsNotExist(err) {
		t.Error("cache file should be removed")
	}
}
