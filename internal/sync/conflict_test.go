package sync

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/klauern/snapsync/internal/model"
)

func history(ids ...string) []model.HistoryItem {
	items := make([]model.HistoryItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.HistoryItem{ID: id, Prompt: "prompt " + id})
	}
	return items
}

func styling(ids ...string) []model.StylingItem {
	items := make([]model.StylingItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.StylingItem{ID: id, Style: "style " + id})
	}
	return items
}

func wardrobe(ids ...string) []model.WardrobeItem {
	items := make([]model.WardrobeItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.WardrobeItem{ID: id, Name: "item " + id})
	}
	return items
}

func TestDetector_HistoryDivergence(t *testing.T) {
	local := model.Snapshot{History: history("h1", "h2")}
	remote := model.Snapshot{History: history("h1", "h3")}

	conflicts := NewDetector().Detect(local, remote)
	if len(conflicts) != 1 {
		t.Fatalf("Detect() returned %d conflicts, want 1", len(conflicts))
	}

	c := conflicts[0]
	if c.Field != FieldHistory {
		t.Errorf("Field = %q, want %q", c.Field, FieldHistory)
	}
	if got := model.IDs(c.Local.History); !slices.Equal(got, []string{"h2"}) {
		t.Errorf("local-only = %v, want [h2]", got)
	}
	if got := model.IDs(c.Remote.History); !slices.Equal(got, []string{"h3"}) {
		t.Errorf("remote-only = %v, want [h3]", got)
	}
}

func TestDetector_NoConflict(t *testing.T) {
	base := model.Snapshot{
		UpdatedAt:      time.UnixMilli(100),
		Description:    "same",
		RevisionPrompt: "same",
		History:        history("h1", "h2"),
		StylingHistory: map[string][]model.StylingItem{"casual": styling("s1")},
		Wardrobe:       wardrobe("w1"),
	}

	tests := []struct {
		name   string
		remote func() model.Snapshot
	}{
		{
			name:   "identical",
			remote: base.Clone,
		},
		{
			name: "different timestamps",
			remote: func() model.Snapshot {
				s := base.Clone()
				s.UpdatedAt = time.UnixMilli(999)
				return s
			},
		},
		{
			name: "reordered items",
			remote: func() model.Snapshot {
				s := base.Clone()
				s.History = history("h2", "h1")
				return s
			},
		},
		{
			name: "item payload changed under same id",
			remote: func() model.Snapshot {
				s := base.Clone()
				s.Wardrobe[0].Name = "renamed"
				return s
			},
		},
		{
			name: "empty bucket versus missing bucket",
			remote: func() model.Snapshot {
				s := base.Clone()
				s.StylingHistory["formal"] = nil
				return s
			},
		},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(base, tt.remote()); got != nil {
				t.Errorf("Detect() = %v, want nil", got)
			}
		})
	}
}

func TestDetector_Order(t *testing.T) {
	local := model.Snapshot{
		Description:    "local text",
		RevisionPrompt: "local prompt",
		History:        history("h1"),
		StylingHistory: map[string][]model.StylingItem{
			"b": styling("s3"),
			"a": styling("s1"),
		},
		Wardrobe: wardrobe("w1"),
	}
	remote := model.Snapshot{
		Description:    "remote text",
		RevisionPrompt: "remote prompt",
		History:        history("h2"),
		StylingHistory: map[string][]model.StylingItem{
			"d": styling("s5"),
			"a": styling("s2"),
			"c": styling("s4"),
		},
		Wardrobe: wardrobe("w2"),
	}

	want := []string{
		"description",
		"revisionPrompt",
		"history",
		"stylingHistory.a",
		"stylingHistory.b",
		"stylingHistory.c",
		"stylingHistory.d",
		"wardrobe",
	}

	d := NewDetector()
	for i := range 5 {
		data := &ConflictData{Conflicts: d.Detect(local, remote)}
		if got := data.Fields(); !slices.Equal(got, want) {
			t.Fatalf("run %d: Fields() = %v, want %v", i, got, want)
		}
	}
}

func TestDetector_ScalarSides(t *testing.T) {
	local := model.Snapshot{Description: "X"}
	remote := model.Snapshot{Description: "Y"}

	conflicts := NewDetector().Detect(local, remote)
	if len(conflicts) != 1 {
		t.Fatalf("Detect() returned %d conflicts, want 1", len(conflicts))
	}
	c := conflicts[0]
	if c.Local.Value != "X" || c.Remote.Value != "Y" {
		t.Errorf("sides = %q/%q, want X/Y", c.Local.Value, c.Remote.Value)
	}
	if !c.Field.IsScalar() {
		t.Error("description should be scalar")
	}
	if c.Summary() != "description: text differs" {
		t.Errorf("Summary() = %q", c.Summary())
	}
}

func TestDetector_OneSidedBucket(t *testing.T) {
	local := model.Snapshot{}
	remote := model.Snapshot{StylingHistory: map[string][]model.StylingItem{"evening": styling("s1", "s2")}}

	conflicts := NewDetector().Detect(local, remote)
	if len(conflicts) != 1 {
		t.Fatalf("Detect() returned %d conflicts, want 1", len(conflicts))
	}
	c := conflicts[0]
	if c.Key() != "stylingHistory.evening" {
		t.Errorf("Key() = %q", c.Key())
	}
	if c.Local.Count() != 0 || c.Remote.Count() != 2 {
		t.Errorf("counts = %d/%d, want 0/2", c.Local.Count(), c.Remote.Count())
	}
}

func TestConflictData_Summary(t *testing.T) {
	data := &ConflictData{
		ProjectID: "proj-1",
		Conflicts: NewDetector().Detect(
			model.Snapshot{Description: "a", Wardrobe: wardrobe("w1")},
			model.Snapshot{Description: "b"},
		),
	}

	summary := data.Summary()
	for _, want := range []string{
		"2 conflict(s) in project proj-1",
		"description: text differs",
		"wardrobe: 1 local-only, 0 remote-only item(s)",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() missing %q:\n%s", want, summary)
		}
	}
}
