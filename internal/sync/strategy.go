package sync

import (
	"fmt"
	"strings"
)

// Strategy defines how a detected conflict is resolved into one snapshot.
type Strategy string

const (
	// StrategyPreferLocal keeps the local snapshot verbatim, discarding remote-only data.
	StrategyPreferLocal Strategy = "prefer-local"

	// StrategyPreferRemote keeps the remote snapshot verbatim, discarding local-only data.
	StrategyPreferRemote Strategy = "prefer-remote"

	// StrategySmart merges field by field without dropping any collection item.
	StrategySmart Strategy = "smart"
)

// IsValid returns true if the strategy is recognized.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyPreferLocal, StrategyPreferRemote, StrategySmart:
		return true
	default:
		return false
	}
}

// IsDestructive returns true if the strategy may discard items that exist
// only on one replica.
func (s Strategy) IsDestructive() bool {
	return s == StrategyPreferLocal || s == StrategyPreferRemote
}

// AllStrategies returns all supported merge strategies.
func AllStrategies() []Strategy {
	return []Strategy{StrategySmart, StrategyPreferLocal, StrategyPreferRemote}
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyPreferLocal:
		return "Keep this device's version; items only in the cloud are discarded"
	case StrategyPreferRemote:
		return "Keep the cloud version; items only on this device are discarded"
	case StrategySmart:
		return "Merge both versions; newest text wins and no items are lost (recommended)"
	default:
		return "Unknown strategy"
	}
}

// ParseStrategy parses a user-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "prefer-local", "preferlocal":
		return StrategyPreferLocal, nil
	case "remote", "cloud", "prefer-remote", "preferremote":
		return StrategyPreferRemote, nil
	case "smart", "merge":
		return StrategySmart, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (valid: smart, prefer-local, prefer-remote)", s)
	}
}
