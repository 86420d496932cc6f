package model

import (
	"maps"
	"slices"
	"time"
)

// Snapshot is the complete per-project document kept in sync between the
// local and remote replicas. A snapshot is always written whole.
type Snapshot struct {
	// UpdatedAt is set by whichever replica last wrote the snapshot.
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at" msgpack:"updated_at"`

	Description    string `json:"description" yaml:"description" msgpack:"description"`
	RevisionPrompt string `json:"revisionPrompt" yaml:"revision_prompt" msgpack:"revision_prompt"`

	// History is append-only in normal operation.
	History []HistoryItem `json:"history" yaml:"history" msgpack:"history"`

	// StylingHistory maps a category key to its ordered items.
	StylingHistory map[string][]StylingItem `json:"stylingHistory" yaml:"styling_history" msgpack:"styling_history"`

	Wardrobe []WardrobeItem `json:"wardrobe" yaml:"wardrobe" msgpack:"wardrobe"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.History = slices.Clone(s.History)
	out.Wardrobe = slices.Clone(s.Wardrobe)
	if s.StylingHistory != nil {
		out.StylingHistory = make(map[string][]StylingItem, len(s.StylingHistory))
		for key, bucket := range s.StylingHistory {
			out.StylingHistory[key] = slices.Clone(bucket)
		}
	}
	return out
}

// StylingKeys returns the styling categories in sorted order.
func (s Snapshot) StylingKeys() []string {
	return slices.Sorted(maps.Keys(s.StylingHistory))
}

// ItemCount returns the total number of collection items in the snapshot.
func (s Snapshot) ItemCount() int {
	n := len(s.History) + len(s.Wardrobe)
	for _, bucket := range s.StylingHistory {
		n += len(bucket)
	}
	return n
}

// AssignMissingIDs gives every item without an identifier a fresh one.
// Used when importing documents authored outside the sync engine.
func (s *Snapshot) AssignMissingIDs() int {
	assigned := 0
	for i := range s.History {
		if s.History[i].ID == "" {
			s.History[i].ID = NewItemID()
			assigned++
		}
	}
	for key, bucket := range s.StylingHistory {
		for i := range bucket {
			if bucket[i].ID == "" {
				bucket[i].ID = NewItemID()
				assigned++
			}
		}
		s.StylingHistory[key] = bucket
	}
	for i := range s.Wardrobe {
		if s.Wardrobe[i].ID == "" {
			s.Wardrobe[i].ID = NewItemID()
			assigned++
		}
	}
	return assigned
}
