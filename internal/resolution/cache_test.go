package resolution

import (
	"testing"

	"github.com/stretchr/testify/require"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

func TestSignatureLRU_GetPut(t *testing.T) {
	cache := NewSignatureLRU(2)

	_, ok := cache.Get(`{"core_hash":"a"}`)
	require.False(t, ok)

	cache.Put(`{"core_hash":"a"}`, v1.Signature{CoreHash: "a"})
	got, ok := cache.Get(`{"core_hash":"a"}`)
	require.True(t, ok)
	require.Equal(t, "a", got.CoreHash)
}

func TestSignatureLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewSignatureLRU(2)

	cache.Put("a", v1.Signature{CoreHash: "a"})
	cache.Put("b", v1.Signature{CoreHash: "b"})

	// Touch "a" so "b" is the eviction candidate.
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Put("c", v1.Signature{CoreHash: "c"})
	require.Equal(t, 2, cache.Len())

	_, ok = cache.Get("b")
	require.False(t, ok)
	_, ok = cache.Get("a")
	require.True(t, ok)
	_, ok = cache.Get("c")
	require.True(t, ok)
}

func TestSignatureLRU_PutExistingUpdates(t *testing.T) {
	cache := NewSignatureLRU(2)

	cache.Put("a", v1.Signature{CoreHash: "old"})
	cache.Put("a", v1.Signature{CoreHash: "new"})
	require.Equal(t, 1, cache.Len())

	got, ok := cache.Get("a")
	require.True(t, ok)
	require.Equal(t, "new", got.CoreHash)
}

func TestSignatureLRU_InvalidateAndClear(t *testing.T) {
	cache := NewSignatureLRU(4)

	cache.Put("a", v1.Signature{CoreHash: "a"})
	cache.Put("b", v1.Signature{CoreHash: "b"})

	cache.Invalidate("a")
	_, ok := cache.Get("a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Len())

	cache.Invalidate("not-present")
	require.Equal(t, 1, cache.Len())

	cache.Clear()
	require.Equal(t, 0, cache.Len())
}
