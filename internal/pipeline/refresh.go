package pipeline

import (
	"context"
	"fmt"

	"mantrify/internal/queue"
)

// Lister returns every queue record in one call. When a Source also
// implements Lister, Refresh uses a single listing instead of one fetch per
// submission.
type Lister interface {
	QueueRecords(ctx context.Context) ([]queue.Record, error)
}

// Persist folds obs into the local submission store.
func Persist(ctx context.Context, store *queue.Store, obs Observation) error {
	switch {
	case obs.Outcome == OutcomeRemoved:
		return store.MarkRemoved(ctx, obs.QueueID)
	case obs.Status.Valid():
		return store.ApplyObservation(ctx, obs.QueueID, obs.Status)
	default:
		return nil
	}
}

// Refresh polls every unsettled submission in store once and records the
// result. Each submission gets its own tracker seeded with the cached status,
// so a stale backend answer cannot rewind the store.
func Refresh(ctx context.Context, store *queue.Store, src Source, policy Policy, opts ...TrackerOption) ([]Observation, error) {
	pending, err := store.Pending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	fetch := src.QueueRecord
	if lister, ok := src.(Lister); ok {
		records, err := lister.QueueRecords(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh submissions: %w", err)
		}
		byID := make(map[int64]queue.Record, len(records))
		for _, rec := range records {
			byID[rec.ID] = rec
		}
		fetch = func(_ context.Context, id int64) (*queue.Record, error) {
			rec, ok := byID[id]
			if !ok {
				return nil, nil
			}
			return &rec, nil
		}
	}

	observations := make([]Observation, 0, len(pending))
	for _, sub := range pending {
		rec, err := fetch(ctx, sub.QueueID)
		if err != nil {
			return observations, fmt.Errorf("refresh submission %d: %w", sub.QueueID, err)
		}
		trackerOpts := append([]TrackerOption{WithInitialStatus(sub.Status)}, opts...)
		obs := NewTracker(sub.QueueID, policy, trackerOpts...).Observe(rec)
		if err := Persist(ctx, store, obs); err != nil {
			return observations, err
		}
		observations = append(observations, obs)
	}
	return observations, nil
}
