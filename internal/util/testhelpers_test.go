//nolint:revive // var-naming - package name is meaningful
package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateTempDir(t *testing.T) {
	dir := CreateTempDir(t)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("CreateTempDir() did not create directory: %s", dir)
	}
	if !strings.HasPrefix(filepath.Base(dir), "snapsync-test-") {
		t.Errorf("CreateTempDir() = %s, want snapsync-test- prefix", dir)
	}
}

func TestIsolatedHome(t *testing.T) {
	home := IsolatedHome(t)

	AssertEqual(t, SnapsyncHome(), home)
	AssertEqual(t, StorePath(), filepath.Join(home, "store"))
	AssertEqual(t, BackupsPath(), filepath.Join(home, "backups"))
}

func TestWriteFile(t *testing.T) {
	dir := CreateTempDir(t)
	content := "local:\n  backend: memory\n"

	path := WriteFile(t, filepath.Join(dir, "device", "config.yaml"), content)

	got, err := os.ReadFile(path) //nolint:gosec // G304 - safe in test code using temp directory
	AssertNoError(t, err)
	AssertEqual(t, string(got), content)
}

func TestAssertErrorContains(t *testing.T) {
	AssertErrorContains(t, errors.New("project board has no local snapshot"), "no local snapshot")
}

func TestAssertEqual(t *testing.T) {
	t.Run("project ids", func(t *testing.T) {
		AssertEqual(t, "board", "board")
	})

	t.Run("item counts", func(t *testing.T) {
		AssertEqual(t, 3, 3)
	})
}
