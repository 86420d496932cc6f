package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or fallback when it is not a
// terminal or the size is unavailable.
func TerminalWidth(f *os.File, fallback int) int {
	if !IsTerminal(f) {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// ConfigureColor applies a color mode (auto, always, never). In auto mode
// colors are enabled only when out is a terminal and NO_COLOR is unset.
func ConfigureColor(mode string, out *os.File) error {
	switch mode {
	case "", "auto":
		if os.Getenv("NO_COLOR") != "" || !IsTerminal(out) {
			DisableColors()
		} else {
			EnableColors()
		}
	case "always":
		EnableColors()
	case "never":
		DisableColors()
	default:
		return fmt.Errorf("invalid color mode %q (valid: auto, always, never)", mode)
	}
	return nil
}
