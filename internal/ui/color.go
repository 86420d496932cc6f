// Package ui provides terminal output helpers for snapsync.
package ui

import (
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/klauern/snapsync/internal/status"
)

// Color function types for styled output.
var (
	// Success is used for successful operations (green).
	Success = color.New(color.FgGreen).SprintFunc()
	// Error is used for errors and failures (red).
	Error = color.New(color.FgRed).SprintFunc()
	// Warning is used for warnings and cautions (yellow).
	Warning = color.New(color.FgYellow).SprintFunc()
	// Info is used for informational messages (cyan).
	Info = color.New(color.FgCyan).SprintFunc()
	// Bold is used for emphasis (bold white).
	Bold = color.New(color.Bold).SprintFunc()
	// Dim is used for secondary information (faint).
	Dim = color.New(color.Faint).SprintFunc()
	// Header is used for table headers (bold cyan).
	Header = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Status symbols with colors.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolSkipped = "-"
	SymbolPending = "○"
	SymbolOffline = "⊘"
)

// StatusSuccess returns a green checkmark with optional message.
func StatusSuccess(msg string) string {
	return withSymbol(Success, SymbolSuccess, msg)
}

// StatusError returns a red X with optional message.
func StatusError(msg string) string {
	return withSymbol(Error, SymbolError, msg)
}

// StatusWarning returns a yellow warning with optional message.
func StatusWarning(msg string) string {
	return withSymbol(Warning, SymbolWarning, msg)
}

// StatusSkipped returns a dimmed skip symbol with optional message.
func StatusSkipped(msg string) string {
	return withSymbol(Dim, SymbolSkipped, msg)
}

func withSymbol(paint func(...any) string, symbol, msg string) string {
	if msg == "" {
		return paint(symbol)
	}
	return paint(symbol) + " " + msg
}

var titleCaser = cases.Title(language.English)

// StatusLabel returns the title-cased name of s, e.g. "Conflict".
func StatusLabel(s status.Status) string {
	return titleCaser.String(s.String())
}

// StatusBadge renders s as a colored symbol followed by its label.
func StatusBadge(s status.Status) string {
	label := StatusLabel(s)
	switch s {
	case status.Synced:
		return withSymbol(Success, SymbolSuccess, label)
	case status.Syncing:
		return withSymbol(Info, SymbolPending, label)
	case status.Offline:
		return withSymbol(Dim, SymbolOffline, label)
	case status.Error:
		return withSymbol(Error, SymbolError, label)
	case status.Conflict:
		return withSymbol(Warning, SymbolWarning, label)
	default:
		return withSymbol(Dim, SymbolSkipped, label)
	}
}

// DisableColors disables all color output.
// This is useful for piping output or for users who prefer no colors.
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output.
func EnableColors() {
	color.NoColor = false
}

// IsColorEnabled returns whether colors are currently enabled.
func IsColorEnabled() bool {
	return !color.NoColor
}
