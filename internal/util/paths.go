package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the snapsync home directory.
const HomeEnv = "SNAPSYNC_HOME"

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// SnapsyncHome returns the root directory for snapsync state.
// It honors SNAPSYNC_HOME and defaults to ~/.snapsync.
func SnapsyncHome() string {
	if v := os.Getenv(HomeEnv); v != "" {
		return v
	}
	return filepath.Join(HomeDir(), ".snapsync")
}

// StorePath returns the default local snapshot database directory.
func StorePath() string {
	return filepath.Join(SnapsyncHome(), "store")
}

// CachePath returns the default remote snapshot cache directory.
func CachePath() string {
	return filepath.Join(SnapsyncHome(), "cache")
}

// BackupsPath returns the default backup directory.
func BackupsPath() string {
	return filepath.Join(SnapsyncHome(), "backups")
}

// ServerDBPath returns the default database file for the remote server.
func ServerDBPath() string {
	return filepath.Join(SnapsyncHome(), "server", "snapshots.db")
}

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(p string) string {
	if p == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(HomeDir(), p[2:])
	}
	return p
}
