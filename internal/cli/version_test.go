package cli

import (
	"context"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	tests := map[string]struct {
		args       []string
		wantErr    bool
		wantOutput []string
	}{
		"version command outputs version info": {
			args:    []string{"snapsync", "version"},
			wantErr: false,
			wantOutput: []string{
				"snapsync version",
				"commit:",
				"built:",
				"go:",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			output, err := captureOutput(t, func() error {
				return Run(context.Background(), tt.args)
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(output, want) {
					t.Errorf("Run() output = %q, want substring %q", output, want)
				}
			}
		})
	}
}

func TestVersionCommandOutputFormat(t *testing.T) {
	output, err := captureOutput(t, func() error {
		return Run(context.Background(), []string{"snapsync", "version"})
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Verify output format - should be 4 lines
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines of output, got %d: %q", len(lines), output)
	}

	if !strings.HasPrefix(lines[0], "snapsync version ") {
		t.Errorf("first line should start with 'snapsync version ', got %q", lines[0])
	}

	// Verify indentation of subsequent lines
	for i, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %d should be indented with 2 spaces, got %q", i+2, line)
		}
	}

	// Verify each line contains expected label
	expectedLabels := []string{"version", "commit:", "built:", "go:"}
	for i, label := range expectedLabels {
		if !strings.Contains(lines[i], label) {
			t.Errorf("line %d should contain %q, got %q", i+1, label, lines[i])
		}
	}
}

func TestVersionCommandIncludesVariables(t *testing.T) {
	output, err := captureOutput(t, func() error {
		return Run(context.Background(), []string{"snapsync", "version"})
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Verify the actual variable values appear in output
	for _, want := range []string{Version, Commit, BuildDate, runtime.Version()} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got %q", want, output)
		}
	}
}

func TestVersionCommandDefinition(t *testing.T) {
	cmd := versionCommand()

	if cmd.Name != "version" {
		t.Errorf("command name = %q, want %q", cmd.Name, "version")
	}

	if cmd.Usage == "" {
		t.Error("command should have usage text")
	}

	if !strings.Contains(cmd.Usage, "version") {
		t.Errorf("usage should mention version, got %q", cmd.Usage)
	}

	if cmd.Action == nil {
		t.Error("command should have an action function")
	}
}
