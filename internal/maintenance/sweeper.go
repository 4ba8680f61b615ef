// Package maintenance prunes superseded slices from storage. The resolution
// engine already ignores older duplicates at read time; the sweeper reclaims
// the space they occupy.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/resolve"
	"github.com/coverline-io/coverline/internal/core/storage"
)

const defaultBatchSize = 500

// Sweeper runs duplicate sweeps on a periodic interval.
// It is stateless: each tick independently scans the full slice set.
type Sweeper struct {
	interval  time.Duration
	store     storage.SliceStore
	batchSize int
}

// NewSweeper creates a periodic duplicate sweeper.
func NewSweeper(interval time.Duration, store storage.SliceStore, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Sweeper{
		interval:  interval,
		store:     store,
		batchSize: batchSize,
	}
}

// Start begins periodic sweeping. Runs until context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Sweeper] Starting duplicate sweeper",
		"interval", s.interval,
		"batch_size", s.batchSize,
	)

	// Run an initial sweep to reclaim any existing backlog
	if _, err := s.Sweep(ctx); err != nil {
		slog.Error("[Sweeper] Initial sweep failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			deleted, err := s.Sweep(ctx)
			if err != nil {
				slog.Error("[Sweeper] Sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("[Sweeper] Sweep complete", "deleted", deleted)
			}
		case <-ctx.Done():
			slog.Info("[Sweeper] Stopping (context cancelled)")
			return nil
		}
	}
}

// survivor tracks the freshest slice seen so far for one retrieval identity.
type survivor struct {
	id          string
	retrievedAt time.Time
}

// Sweep scans all slices once and deletes every slice superseded by a
// fresher retrieval of the same identity. Returns the number deleted.
//
// The winner among duplicates matches read-time deduplication: newest
// RetrievedAt, then smallest ID.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	survivors := make(map[string]survivor)
	var superseded []string

	cursor := ""
	for {
		page, err := s.store.ListSlicesAfter(ctx, cursor, s.batchSize)
		if err != nil {
			return 0, fmt.Errorf("failed to list slices: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, slice := range page {
			sig, ok := v1.ParseSignature(slice.Signature)
			if !ok {
				// Unparseable signatures have no identity to collide on.
				continue
			}
			key := resolve.DedupeKey(slice.DimensionConstraints, sig, slice.WindowFrom, slice.WindowTo)

			current, exists := survivors[key]
			if !exists {
				survivors[key] = survivor{id: slice.ID, retrievedAt: slice.RetrievedAt}
				continue
			}

			if slice.RetrievedAt.After(current.retrievedAt) ||
				(slice.RetrievedAt.Equal(current.retrievedAt) && slice.ID < current.id) {
				superseded = append(superseded, current.id)
				survivors[key] = survivor{id: slice.ID, retrievedAt: slice.RetrievedAt}
			} else {
				superseded = append(superseded, slice.ID)
			}
		}

		cursor = page[len(page)-1].ID
		if len(page) < s.batchSize {
			break
		}
	}

	if len(superseded) == 0 {
		return 0, nil
	}

	deleted, err := s.store.DeleteSlices(ctx, superseded)
	if err != nil {
		return 0, fmt.Errorf("failed to delete superseded slices: %w", err)
	}
	return deleted, nil
}
