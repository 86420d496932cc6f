package sync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
)

// Merger resolves two snapshots into one according to a Strategy.
// It performs no I/O and never retains its inputs.
type Merger struct {
	now func() time.Time
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithClock sets the clock used to stamp merged snapshots.
func WithClock(now func() time.Time) MergerOption {
	return func(m *Merger) { m.now = now }
}

// NewMerger creates a merger stamping results with the wall clock.
func NewMerger(opts ...MergerOption) *Merger {
	m := &Merger{now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Merge produces the resolved snapshot. The result's UpdatedAt is always the
// merge time. An unrecognized strategy is a caller bug and yields
// ErrMalformedStrategy.
func (m *Merger) Merge(local, remote model.Snapshot, strategy Strategy) (model.Snapshot, error) {
	logging.Debug("starting merge",
		logging.Operation("merge"),
		logging.Strategy(string(strategy)),
	)

	var out model.Snapshot
	switch strategy {
	case StrategyPreferLocal:
		out = local.Clone()
	case StrategyPreferRemote:
		out = remote.Clone()
	case StrategySmart:
		out = m.smartMerge(local, remote)
	default:
		return model.Snapshot{}, fmt.Errorf("%w: %q", ErrMalformedStrategy, strategy)
	}
	out.UpdatedAt = m.now()

	logging.Debug("merge completed",
		logging.Strategy(string(strategy)),
		logging.Count(out.ItemCount()),
	)
	return out, nil
}

// smartMerge takes free text from the more recently written snapshot (local
// on a tie) and unions every collection by identifier, local items first.
func (m *Merger) smartMerge(local, remote model.Snapshot) model.Snapshot {
	newer := local
	if remote.UpdatedAt.After(local.UpdatedAt) {
		newer = remote
	}

	logging.Debug("smart merge text source",
		slog.Bool("remote_newer", remote.UpdatedAt.After(local.UpdatedAt)),
	)

	return model.Snapshot{
		Description:    newer.Description,
		RevisionPrompt: newer.RevisionPrompt,
		History:        model.Union(local.History, remote.History),
		StylingHistory: mergeStyling(local.StylingHistory, remote.StylingHistory),
		Wardrobe:       model.Union(local.Wardrobe, remote.Wardrobe),
	}
}

// mergeStyling unions buckets present on both sides and copies one-sided
// buckets unchanged.
func mergeStyling(local, remote map[string][]model.StylingItem) map[string][]model.StylingItem {
	if local == nil && remote == nil {
		return nil
	}
	out := make(map[string][]model.StylingItem, len(local)+len(remote))
	for key, bucket := range local {
		out[key] = model.Union(bucket, remote[key])
	}
	for key, bucket := range remote {
		if _, ok := local[key]; !ok {
			out[key] = model.Union(nil, bucket)
		}
	}
	return out
}
