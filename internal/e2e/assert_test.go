package e2e

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAssertSyncedResult(t *testing.T) {
	r := &Result{Stdout: "board ✓ Synced\n  last sync: 2026-01-01T09:00:00Z\n"}

	AssertSuccess(t, r)
	AssertExitCode(t, r, 0)
	AssertStatus(t, r, "Synced")
	AssertOutputContains(t, r, "last sync")
	AssertOutputNotContains(t, r, "conflict(s)")
}

func TestAssertConflictResult(t *testing.T) {
	r := &Result{
		Stdout:   "board ⚠ Conflict\n",
		Err:      errors.New("project board has unresolved conflicts"),
		ExitCode: 1,
	}

	AssertError(t, r)
	AssertExitCode(t, r, 1)
	AssertStatus(t, r, "Conflict")
	AssertErrorContains(t, r, "unresolved conflicts")
}

func TestAssertBackupFiles(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "board")
	if err := os.MkdirAll(project, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"20260101-090000-local-aaaa.json", "20260101-090000-remote-bbbb.json"} {
		if err := os.WriteFile(filepath.Join(project, name), []byte(`{"description":"spring board"}`), 0o600); err != nil {
			t.Fatalf("write backup: %v", err)
		}
	}

	AssertBackupFiles(t, dir, "board", 2)
	AssertBackupFiles(t, dir, "other", 0)
	AssertFileContains(t, filepath.Join(project, "20260101-090000-local-aaaa.json"), "spring board")
}
