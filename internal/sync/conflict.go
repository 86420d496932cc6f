package sync

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
)

// Field identifies the snapshot field a conflict was found in.
type Field string

const (
	// FieldDescription is the project's free-text description.
	FieldDescription Field = "description"
	// FieldRevisionPrompt is the pending revision prompt text.
	FieldRevisionPrompt Field = "revisionPrompt"
	// FieldHistory is the generation history collection.
	FieldHistory Field = "history"
	// FieldStylingHistory is one styling bucket, named by Conflict.Bucket.
	FieldStylingHistory Field = "stylingHistory"
	// FieldWardrobe is the saved garment collection.
	FieldWardrobe Field = "wardrobe"
)

// IsScalar returns true for free-text fields.
func (f Field) IsScalar() bool {
	return f == FieldDescription || f == FieldRevisionPrompt
}

// Side holds one replica's contribution to a conflict. Scalar conflicts set
// Value; collection conflicts carry only the items unique to that replica.
type Side struct {
	Value    string               `json:"value,omitempty"`
	History  []model.HistoryItem  `json:"history,omitempty"`
	Styling  []model.StylingItem  `json:"styling,omitempty"`
	Wardrobe []model.WardrobeItem `json:"wardrobe,omitempty"`
}

// Count returns the number of items unique to this side.
func (s Side) Count() int {
	return len(s.History) + len(s.Styling) + len(s.Wardrobe)
}

// Conflict is a single divergence between the local and remote snapshots.
type Conflict struct {
	Field Field `json:"field"`

	// Bucket is the styling category for FieldStylingHistory conflicts.
	Bucket string `json:"bucket,omitempty"`

	Local  Side `json:"local"`
	Remote Side `json:"remote"`
}

// Key returns the field name, qualified by bucket for styling conflicts.
func (c Conflict) Key() string {
	if c.Bucket != "" {
		return fmt.Sprintf("%s.%s", c.Field, c.Bucket)
	}
	return string(c.Field)
}

// Summary returns a brief description of the conflict.
func (c Conflict) Summary() string {
	if c.Field.IsScalar() {
		return fmt.Sprintf("%s: text differs", c.Key())
	}
	return fmt.Sprintf("%s: %d local-only, %d remote-only item(s)",
		c.Key(), c.Local.Count(), c.Remote.Count())
}

// ConflictData is everything needed to resolve a divergence without
// re-running detection.
type ConflictData struct {
	ProjectID  string         `json:"projectId"`
	Local      model.Snapshot `json:"local"`
	Remote     model.Snapshot `json:"remote"`
	Conflicts  []Conflict     `json:"conflicts"`
	DetectedAt time.Time      `json:"detectedAt"`
}

// Fields returns the conflict keys in detection order.
func (d *ConflictData) Fields() []string {
	keys := make([]string, 0, len(d.Conflicts))
	for _, c := range d.Conflicts {
		keys = append(keys, c.Key())
	}
	return keys
}

// Summary returns a multi-line description of all conflicts.
func (d *ConflictData) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d conflict(s) in project %s\n", len(d.Conflicts), d.ProjectID))
	for _, c := range d.Conflicts {
		sb.WriteString("  - ")
		sb.WriteString(c.Summary())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Detector compares two snapshots field by field.
type Detector struct{}

// NewDetector creates a new conflict detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the conflicts between local and remote in a fixed order:
// description, revisionPrompt, history, styling buckets (local keys sorted,
// then remote-only keys sorted), wardrobe. Timestamps are not consulted.
// An empty result means the snapshots are equal under these rules.
func (d *Detector) Detect(local, remote model.Snapshot) []Conflict {
	logging.Debug("checking for conflicts", logging.Operation("conflict_detection"))

	var conflicts []Conflict

	if local.Description != remote.Description {
		conflicts = append(conflicts, Conflict{
			Field:  FieldDescription,
			Local:  Side{Value: local.Description},
			Remote: Side{Value: remote.Description},
		})
	}

	if local.RevisionPrompt != remote.RevisionPrompt {
		conflicts = append(conflicts, Conflict{
			Field:  FieldRevisionPrompt,
			Local:  Side{Value: local.RevisionPrompt},
			Remote: Side{Value: remote.RevisionPrompt},
		})
	}

	if l, r := model.Difference(local.History, remote.History), model.Difference(remote.History, local.History); len(l) > 0 || len(r) > 0 {
		conflicts = append(conflicts, Conflict{
			Field:  FieldHistory,
			Local:  Side{History: l},
			Remote: Side{History: r},
		})
	}

	for _, key := range stylingKeyOrder(local, remote) {
		lb, rb := local.StylingHistory[key], remote.StylingHistory[key]
		l, r := model.Difference(lb, rb), model.Difference(rb, lb)
		if len(l) == 0 && len(r) == 0 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Field:  FieldStylingHistory,
			Bucket: key,
			Local:  Side{Styling: l},
			Remote: Side{Styling: r},
		})
	}

	if l, r := model.Difference(local.Wardrobe, remote.Wardrobe), model.Difference(remote.Wardrobe, local.Wardrobe); len(l) > 0 || len(r) > 0 {
		conflicts = append(conflicts, Conflict{
			Field:  FieldWardrobe,
			Local:  Side{Wardrobe: l},
			Remote: Side{Wardrobe: r},
		})
	}

	if len(conflicts) == 0 {
		logging.Debug("no conflict detected")
		return nil
	}

	for _, c := range conflicts {
		logging.Debug("conflict detected",
			logging.Field(string(c.Field)),
			logging.Bucket(c.Bucket),
			slog.Int("local_only", c.Local.Count()),
			slog.Int("remote_only", c.Remote.Count()),
		)
	}

	return conflicts
}

// stylingKeyOrder returns local category keys in sorted order followed by
// the sorted keys that exist only on the remote.
func stylingKeyOrder(local, remote model.Snapshot) []string {
	keys := local.StylingKeys()
	var remoteOnly []string
	for key := range remote.StylingHistory {
		if _, ok := local.StylingHistory[key]; !ok {
			remoteOnly = append(remoteOnly, key)
		}
	}
	slices.Sort(remoteOnly)
	return append(keys, remoteOnly...)
}
