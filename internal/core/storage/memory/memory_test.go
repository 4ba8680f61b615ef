package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/storage"
)

func storedSlice(id, coreHash string, from, to v1.Date) *v1.Slice {
	sig, _ := json.Marshal(map[string]any{"core_hash": coreHash})
	return &v1.Slice{
		ID:                   id,
		DimensionConstraints: map[string]string{"channel": "google"},
		Signature:            sig,
		Series: []v1.SeriesPoint{
			{Date: from, N: decimal.NewFromInt(10), K: decimal.NewFromInt(1)},
		},
		RetrievedAt: time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC),
		WindowFrom:  from,
		WindowTo:    to,
	}
}

func TestStore_SaveAndList(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveSlice(ctx, storedSlice("a", "abc", "2025-11-01", "2025-11-07")))
	require.NoError(t, store.SaveSlice(ctx, storedSlice("b", "abc", "2025-11-08", "2025-11-14")))
	require.NoError(t, store.SaveSlice(ctx, storedSlice("c", "other", "2025-11-01", "2025-11-07")))

	got, err := store.ListSlices(ctx, "abc", "2025-11-01", "2025-11-30")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "b", got[1].ID)
}

func TestStore_SaveSlice_Duplicate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveSlice(ctx, storedSlice("a", "abc", "2025-11-01", "2025-11-07")))
	err := store.SaveSlice(ctx, storedSlice("a", "abc", "2025-11-01", "2025-11-07"))
	require.ErrorIs(t, err, storage.ErrDuplicate)
	require.Equal(t, 1, store.Len())
}

func TestStore_ListSlices_WindowFilter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveSlice(ctx, storedSlice("a", "abc", "2025-11-01", "2025-11-07")))
	require.NoError(t, store.SaveSlice(ctx, storedSlice("b", "abc", "2025-12-01", "2025-12-07")))

	got, err := store.ListSlices(ctx, "abc", "2025-11-05", "2025-11-20")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ID)
}

func TestStore_ListSlices_UnparseableSignatureIsReturned(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	broken := storedSlice("z", "abc", "2025-11-01", "2025-11-07")
	broken.Signature = json.RawMessage(`not json`)
	require.NoError(t, store.SaveSlice(ctx, broken))

	got, err := store.ListSlices(ctx, "abc", "2025-11-01", "2025-11-30")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "z", got[0].ID)
}

func TestStore_ListSlicesAfter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b", "d"} {
		require.NoError(t, store.SaveSlice(ctx, storedSlice(id, "abc", "2025-11-01", "2025-11-07")))
	}

	page, err := store.ListSlicesAfter(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "a", page[0].ID)
	require.Equal(t, "b", page[1].ID)

	page, err = store.ListSlicesAfter(ctx, "b", 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "c", page[0].ID)
	require.Equal(t, "d", page[1].ID)
}

func TestStore_DeleteSlices(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveSlice(ctx, storedSlice("a", "abc", "2025-11-01", "2025-11-07")))
	require.NoError(t, store.SaveSlice(ctx, storedSlice("b", "abc", "2025-11-01", "2025-11-07")))

	deleted, err := store.DeleteSlices(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
	require.Equal(t, 1, store.Len())
}

func TestStore_CopiesAreDefensive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	original := storedSlice("a", "abc", "2025-11-01", "2025-11-07")
	require.NoError(t, store.SaveSlice(ctx, original))
	original.DimensionConstraints["channel"] = "mutated"

	got, err := store.ListSlices(ctx, "abc", "2025-11-01", "2025-11-30")
	require.NoError(t, err)
	require.Equal(t, "google", got[0].DimensionConstraints["channel"])

	got[0].Series[0].N = decimal.NewFromInt(999)
	again, err := store.ListSlices(ctx, "abc", "2025-11-01", "2025-11-30")
	require.NoError(t, err)
	require.True(t, again[0].Series[0].N.Equal(decimal.NewFromInt(10)))
}
