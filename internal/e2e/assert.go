package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertSuccess fails the test if the command did not succeed.
func AssertSuccess(t *testing.T, r *Result) {
	t.Helper()
	if !r.Success() {
		t.Fatalf("expected success, got error: %v\nstdout: %s", r.Err, r.Stdout)
	}
}

// AssertError fails the test if the command did not return an error.
func AssertError(t *testing.T, r *Result) {
	t.Helper()
	if r.Success() {
		t.Fatalf("expected error, but command succeeded\nstdout: %s", r.Stdout)
	}
}

// AssertExitCode fails the test if the inferred exit code differs.
func AssertExitCode(t *testing.T, r *Result, want int) {
	t.Helper()
	if r.ExitCode != want {
		t.Errorf("exit code = %d, want %d (err: %v)", r.ExitCode, want, r.Err)
	}
}

// AssertErrorContains fails the test if the error message doesn't contain substr.
func AssertErrorContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if r.Success() {
		t.Fatalf("expected error containing %q, but command succeeded", substr)
	}
	if !strings.Contains(r.Err.Error(), substr) {
		t.Errorf("expected error to contain %q\ngot: %v", substr, r.Err)
	}
}

// AssertOutputContains fails the test if stdout doesn't contain substr.
func AssertOutputContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if !strings.Contains(r.Stdout, substr) {
		t.Errorf("expected output to contain %q\ngot: %s", substr, r.Stdout)
	}
}

// AssertOutputNotContains fails the test if stdout contains substr.
func AssertOutputNotContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if strings.Contains(r.Stdout, substr) {
		t.Errorf("expected output without %q\ngot: %s", substr, r.Stdout)
	}
}

// AssertStatus fails the test if the output does not report the given
// replication status label, e.g. "Synced".
func AssertStatus(t *testing.T, r *Result, label string) {
	t.Helper()
	if !strings.Contains(r.Stdout, " "+label) {
		t.Errorf("expected status %q in output\ngot: %s", label, r.Stdout)
	}
}

// AssertFileContains fails the test if the file at path is missing or does
// not contain substr.
func AssertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	// #nosec G304 - path is provided by test code
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("expected %s to contain %q\ngot: %s", path, substr, data)
	}
}

// AssertBackupFiles fails the test unless exactly want snapshot backups of
// projectID are stored under backupDir.
func AssertBackupFiles(t *testing.T, backupDir, projectID string, want int) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(backupDir, projectID, "*.json"))
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(files) != want {
		t.Errorf("backups of %s = %d, want %d: %v", projectID, len(files), want, files)
	}
}
