package storage

import (
	"context"
	"errors"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

// ErrDuplicate is returned when a slice with the same ID already exists.
var ErrDuplicate = errors.New("slice already exists")

// SliceStore defines the interface for persisting and retrieving slices.
// Slices are immutable once stored: there is no update path, only insert
// and delete (the maintenance sweeper deletes superseded retrievals).
type SliceStore interface {
	// SaveSlice persists one retrieved slice. Returns ErrDuplicate when the
	// ID is already present.
	SaveSlice(ctx context.Context, slice *v1.Slice) error

	// ListSlices returns every slice for one core hash whose retrieval
	// window could contain data in [from, to]. Slices without a recorded
	// window are always returned; the resolution engine filters per date.
	ListSlices(ctx context.Context, coreHash string, from, to v1.Date) ([]*v1.Slice, error)

	// ListSlicesAfter pages through all slices in strict ID order,
	// returning those with ID greater than cursor. Used by the maintenance
	// sweeper. cursor="" means "from the beginning".
	ListSlicesAfter(ctx context.Context, cursor string, limit int) ([]*v1.Slice, error)

	// DeleteSlices removes the given slice IDs, returning how many rows
	// were actually deleted.
	DeleteSlices(ctx context.Context, ids []string) (int64, error)
}
