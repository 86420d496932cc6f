// Package e2e provides testing infrastructure for end-to-end CLI tests.
// A Harness runs one cloud replica server and any number of simulated
// devices, each with its own local store, cache and backups, so that
// multi-device divergence can be exercised through the real commands.
package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/snapsync/internal/cli"
	"github.com/klauern/snapsync/internal/remote"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness provides a test harness for running E2E CLI tests against a
// shared cloud replica.
type Harness struct {
	t       *testing.T
	homeDir string
	token   string
	cloud   *remote.SQLiteRepository
	server  *httptest.Server
}

// Option configures a Harness.
type Option func(*Harness)

// WithServerToken makes the cloud server require a bearer token.
func WithServerToken(token string) Option {
	return func(h *Harness) { h.token = token }
}

// NewHarness creates a harness with an isolated SNAPSYNC_HOME and a cloud
// server backed by in-memory SQLite.
func NewHarness(t *testing.T, opts ...Option) *Harness {
	t.Helper()

	h := &Harness{
		t:       t,
		homeDir: t.TempDir(),
		cloud:   remote.OpenSQLiteMemory(t),
	}
	for _, opt := range opts {
		opt(h)
	}

	var serverOpts []remote.ServerOption
	if h.token != "" {
		serverOpts = append(serverOpts, remote.WithRequiredToken(h.token))
	}
	h.server = httptest.NewServer(remote.NewServer(h.cloud, serverOpts...).Handler())
	t.Cleanup(h.server.Close)

	t.Setenv("SNAPSYNC_HOME", h.homeDir)
	return h
}

// HomeDir returns the isolated home directory for this test harness.
func (h *Harness) HomeDir() string {
	return h.homeDir
}

// Cloud returns the repository behind the cloud server.
func (h *Harness) Cloud() *remote.SQLiteRepository {
	return h.cloud
}

// ServerURL returns the base URL of the cloud server.
func (h *Harness) ServerURL() string {
	return h.server.URL
}

// StopServer takes the cloud server offline.
func (h *Harness) StopServer() {
	h.server.Close()
}

// Device is one simulated installation with its own config file.
type Device struct {
	h          *Harness
	name       string
	dir        string
	configPath string
}

// Device creates a device whose state lives under <home>/<name>. The token,
// when non-empty, is sent to the cloud server.
func (h *Harness) Device(name, token string) *Device {
	h.t.Helper()

	dir := filepath.Join(h.homeDir, name)
	d := &Device{h: h, name: name, dir: dir, configPath: filepath.Join(dir, "config.yaml")}

	content := "local:\n" +
		"  backend: badger\n" +
		"  path: " + filepath.Join(dir, "store") + "\n" +
		"remote:\n" +
		"  kind: http\n" +
		"  url: " + h.server.URL + "\n" +
		"  timeout: 5s\n"
	if token != "" {
		content += "  token: " + token + "\n"
	}
	content += "connectivity:\n" +
		"  probe_timeout: 2s\n" +
		"cache:\n" +
		"  enabled: true\n" +
		"  ttl: 24h\n" +
		"  location: " + filepath.Join(dir, "cache") + "\n" +
		"backup:\n" +
		"  enabled: true\n" +
		"  location: " + filepath.Join(dir, "backups") + "\n" +
		"  max_backups: 2\n" +
		"output:\n" +
		"  color: never\n"

	NewFixture(h.t, dir).WriteFile("config.yaml", content)
	return d
}

// Dir returns the device's state directory.
func (d *Device) Dir() string {
	return d.dir
}

// Fixture returns a fixture helper rooted at the device directory.
func (d *Device) Fixture() *Fixture {
	return NewFixture(d.h.t, d.dir)
}

// Run executes a CLI command on this device and captures the output.
func (d *Device) Run(args ...string) *Result {
	d.h.t.Helper()
	return d.h.Run(append([]string{"--config", d.configPath}, args...)...)
}

// Run executes a CLI command with the given arguments and captures the output.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()

	// Prepend "snapsync" as the program name if not provided
	if len(args) == 0 || args[0] != "snapsync" {
		args = append([]string{"snapsync"}, args...)
	}

	// Capture stdout
	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Read stdout concurrently so large output cannot fill the pipe buffer.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), args)

	// Restore stdout and close writer to signal EOF to the reader goroutine
	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}
