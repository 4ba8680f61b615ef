package maintenance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/storage/memory"
)

func sweepSlice(t *testing.T, id, channel string, retrievedAt time.Time) *v1.Slice {
	t.Helper()

	sig, err := json.Marshal(map[string]any{"core_hash": "abc"})
	require.NoError(t, err)

	return &v1.Slice{
		ID:                   id,
		DimensionConstraints: map[string]string{"channel": channel},
		Signature:            sig,
		Series: []v1.SeriesPoint{
			{Date: "2025-11-01", N: decimal.NewFromInt(10), K: decimal.NewFromInt(1)},
		},
		RetrievedAt: retrievedAt,
		WindowFrom:  "2025-11-01",
		WindowTo:    "2025-11-01",
	}
}

func TestSweeper_DeletesSupersededDuplicates(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	older := time.Date(2025, 11, 8, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveSlice(ctx, sweepSlice(t, "a", "google", older)))
	require.NoError(t, store.SaveSlice(ctx, sweepSlice(t, "b", "google", newer)))
	// Different constraint value: a distinct identity, never swept.
	require.NoError(t, store.SaveSlice(ctx, sweepSlice(t, "c", "meta", older)))

	deleted, err := NewSweeper(time.Minute, store, 0).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	remaining, err := store.ListSlicesAfter(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	require.Equal(t, "b", remaining[0].ID)
	require.Equal(t, "c", remaining[1].ID)
}

func TestSweeper_EqualTimestampKeepsSmallestID(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	at := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSlice(ctx, sweepSlice(t, "b", "google", at)))
	require.NoError(t, store.SaveSlice(ctx, sweepSlice(t, "a", "google", at)))

	deleted, err := NewSweeper(time.Minute, store, 0).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	remaining, err := store.ListSlicesAfter(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "a", remaining[0].ID)
}

func TestSweeper_PaginatesAcrossBatches(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{"a", "b", "c", "d", "e"}
	for i, id := range ids {
		require.NoError(t, store.SaveSlice(ctx, sweepSlice(t, id, "google", base.Add(time.Duration(i)*time.Hour))))
	}

	// Batch size smaller than the slice count forces multiple pages; the
	// freshest retrieval must still win globally.
	deleted, err := NewSweeper(time.Minute, store, 2).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)

	remaining, err := store.ListSlicesAfter(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "e", remaining[0].ID)
}

func TestSweeper_UnparseableSignatureIsLeftAlone(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	broken := sweepSlice(t, "z", "google", time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC))
	broken.Signature = json.RawMessage(`not json`)
	require.NoError(t, store.SaveSlice(ctx, broken))

	deleted, err := NewSweeper(time.Minute, store, 0).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)
	require.Equal(t, 1, store.Len())
}

func TestSweeper_EmptyStoreIsNoop(t *testing.T) {
	deleted, err := NewSweeper(time.Minute, memory.NewStore(), 0).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)
}
