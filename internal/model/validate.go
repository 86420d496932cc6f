package model

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError describes a snapshot that breaks an identifier invariant.
type ValidationError struct {
	Field   string
	Bucket  string
	ID      string
	Message string
}

func (e *ValidationError) Error() string {
	field := e.Field
	if e.Bucket != "" {
		field = fmt.Sprintf("%s[%s]", e.Field, e.Bucket)
	}
	if e.ID != "" {
		return fmt.Sprintf("%s: %s: %q", field, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", field, e.Message)
}

// Validate checks that identifiers are present and unique within History,
// within each styling bucket, and within Wardrobe.
func (s Snapshot) Validate() error {
	if err := checkIDs("history", "", s.History); err != nil {
		return err
	}
	for _, key := range s.StylingKeys() {
		if key == "" {
			return &ValidationError{Field: "stylingHistory", Message: "empty category key"}
		}
		if err := checkIDs("stylingHistory", key, s.StylingHistory[key]); err != nil {
			return err
		}
	}
	return checkIDs("wardrobe", "", s.Wardrobe)
}

func checkIDs[T Identified](field, bucket string, items []T) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := item.ItemID()
		if id == "" {
			return &ValidationError{Field: field, Bucket: bucket, Message: "item without identifier"}
		}
		if _, dup := seen[id]; dup {
			return &ValidationError{Field: field, Bucket: bucket, ID: id, Message: "duplicate identifier"}
		}
		seen[id] = struct{}{}
	}
	return nil
}

var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ParseProjectID validates a project identifier. Identifiers become storage
// keys and URL path segments, so only a conservative character set is allowed.
func ParseProjectID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("project id cannot be empty")
	}
	if !projectIDPattern.MatchString(s) {
		return "", fmt.Errorf("invalid project id %q: use letters, digits, '.', '_' or '-'", s)
	}
	return s, nil
}
