// Package memory provides an in-memory SliceStore.
// Useful for testing and development.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/storage"
)

// Store is a mutex-guarded in-memory implementation of storage.SliceStore.
type Store struct {
	mu     sync.RWMutex
	slices map[string]*v1.Slice
}

// NewStore creates an empty in-memory slice store.
func NewStore() *Store {
	return &Store{slices: make(map[string]*v1.Slice)}
}

// SaveSlice stores a copy of the slice to prevent external modification.
func (s *Store) SaveSlice(_ context.Context, slice *v1.Slice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slices[slice.ID]; exists {
		return storage.ErrDuplicate
	}
	s.slices[slice.ID] = copySlice(slice)
	return nil
}

// ListSlices returns slices for one core hash whose window could overlap
// [from, to]. Slices with an unparseable signature are returned as well so
// the resolution engine can report them.
func (s *Store) ListSlices(_ context.Context, coreHash string, from, to v1.Date) ([]*v1.Slice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*v1.Slice
	for _, slice := range s.slices {
		if sig, ok := v1.ParseSignature(slice.Signature); ok && sig.CoreHash != coreHash {
			continue
		}
		if slice.WindowFrom != "" && to.Before(slice.WindowFrom) {
			continue
		}
		if slice.WindowTo != "" && slice.WindowTo.Before(from) {
			continue
		}
		out = append(out, copySlice(slice))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListSlicesAfter pages through all slices in strict ID order.
func (s *Store) ListSlicesAfter(_ context.Context, cursor string, limit int) ([]*v1.Slice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.slices))
	for id := range s.slices {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]*v1.Slice, 0, len(ids))
	for _, id := range ids {
		out = append(out, copySlice(s.slices[id]))
	}
	return out, nil
}

// DeleteSlices removes the given IDs, returning how many existed.
func (s *Store) DeleteSlices(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := s.slices[id]; ok {
			delete(s.slices, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored slices.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slices)
}

func copySlice(in *v1.Slice) *v1.Slice {
	out := *in
	out.Signature = json.RawMessage(append([]byte(nil), in.Signature...))
	out.Series = append([]v1.SeriesPoint(nil), in.Series...)
	if in.DimensionConstraints != nil {
		out.DimensionConstraints = make(map[string]string, len(in.DimensionConstraints))
		for k, v := range in.DimensionConstraints {
			out.DimensionConstraints[k] = v
		}
	}
	return &out
}

var _ storage.SliceStore = (*Store)(nil)
