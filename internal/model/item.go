package model

import (
	"time"

	"github.com/google/uuid"
)

// Identified is implemented by every collection item carried in a Snapshot.
type Identified interface {
	ItemID() string
}

// HistoryItem is one entry of a project's generation history.
type HistoryItem struct {
	ID        string    `json:"id" yaml:"id" msgpack:"id"`
	Prompt    string    `json:"prompt,omitempty" yaml:"prompt,omitempty" msgpack:"prompt,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty" yaml:"image_url,omitempty" msgpack:"image_url,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at" msgpack:"created_at"`
}

// ItemID implements Identified.
func (h HistoryItem) ItemID() string { return h.ID }

// StylingItem is one entry of a styling category.
type StylingItem struct {
	ID        string    `json:"id" yaml:"id" msgpack:"id"`
	Style     string    `json:"style,omitempty" yaml:"style,omitempty" msgpack:"style,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty" yaml:"image_url,omitempty" msgpack:"image_url,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at" msgpack:"created_at"`
}

// ItemID implements Identified.
func (s StylingItem) ItemID() string { return s.ID }

// WardrobeItem is a garment saved to the project's wardrobe.
type WardrobeItem struct {
	ID       string    `json:"id" yaml:"id" msgpack:"id"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Category string    `json:"category,omitempty" yaml:"category,omitempty" msgpack:"category,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty" yaml:"image_url,omitempty" msgpack:"image_url,omitempty"`
	AddedAt  time.Time `json:"addedAt" yaml:"added_at" msgpack:"added_at"`
}

// ItemID implements Identified.
func (w WardrobeItem) ItemID() string { return w.ID }

// NewItemID returns a new time-ordered item identifier.
func NewItemID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IDs returns the identifiers of items in order.
func IDs[T Identified](items []T) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID())
	}
	return ids
}

// IDSet returns the set of identifiers present in items.
func IDSet[T Identified](items []T) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item.ItemID()] = struct{}{}
	}
	return set
}

// Difference returns the items of a whose identifier does not appear in b,
// preserving a's order.
func Difference[T Identified](a, b []T) []T {
	seen := IDSet(b)
	var out []T
	for _, item := range a {
		if _, ok := seen[item.ItemID()]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// Union returns every item of a in its original order followed by the items
// of b whose identifier is absent from a, in b's order.
func Union[T Identified](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, Difference(b, a)...)
}

// SameIDs reports whether a and b contain the same identifier sets.
func SameIDs[T Identified](a, b []T) bool {
	return len(Difference(a, b)) == 0 && len(Difference(b, a)) == 0
}
