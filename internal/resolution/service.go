// Package resolution layers the stateless coverage engine over slice
// storage and the live taxonomy. It owns the engine's caller-provided
// state: the parsed-signature cache and request deduplication.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/contextdef"
	"github.com/coverline-io/coverline/internal/core/resolve"
	"github.com/coverline-io/coverline/internal/core/storage"
)

// ErrInvalidRequest indicates the caller's request cannot be resolved as
// stated. Wrapped errors carry the detail.
var ErrInvalidRequest = errors.New("invalid resolution request")

// Request asks for coverage of one metric over a date range.
type Request struct {
	CoreHash            string   `json:"core_hash"`
	Start               v1.Date  `json:"start"`
	End                 v1.Date  `json:"end"`
	BreakdownDimensions []string `json:"breakdown_dimensions,omitempty"`
}

// Validate checks structural validity of the request.
func (r Request) Validate() error {
	if r.CoreHash == "" {
		return fmt.Errorf("%w: core_hash is required", ErrInvalidRequest)
	}
	if _, err := v1.ParseDate(string(r.Start)); err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidRequest, err)
	}
	if _, err := v1.ParseDate(string(r.End)); err != nil {
		return fmt.Errorf("%w: end: %v", ErrInvalidRequest, err)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s precedes start %s", ErrInvalidRequest, r.End, r.Start)
	}
	for _, dim := range r.BreakdownDimensions {
		if dim == "" {
			return fmt.Errorf("%w: empty breakdown dimension", ErrInvalidRequest)
		}
	}
	return nil
}

// fingerprint is the singleflight key. Two requests with the same
// fingerprint produce the same result against the same store state.
func (r Request) fingerprint() string {
	dims := append([]string(nil), r.BreakdownDimensions...)
	sort.Strings(dims)
	return fmt.Sprintf("%s:%s:%s:%s", r.CoreHash, r.Start, r.End, strings.Join(dims, ","))
}

// Service resolves coverage requests against stored slices.
type Service struct {
	store    storage.SliceStore
	contexts contextdef.Repository
	sigCache *SignatureLRU
	opts     resolve.Options

	// Dedupe concurrent identical resolutions
	group singleflight.Group
}

// NewService creates a resolution service. cacheSize bounds the
// parsed-signature LRU; maxCombinations caps the per-generation
// combination space (zero means the engine default).
func NewService(store storage.SliceStore, contexts contextdef.Repository, cacheSize, maxCombinations int) *Service {
	cache := NewSignatureLRU(cacheSize)
	return &Service{
		store:    store,
		contexts: contexts,
		sigCache: cache,
		opts: resolve.Options{
			MaxCombinations: maxCombinations,
			SignatureCache:  cache,
		},
	}
}

// Resolve answers one coverage request. Concurrent identical requests
// share one resolution; the returned result is shared and must be treated
// as read-only.
func (s *Service) Resolve(ctx context.Context, req Request) (*resolve.CoverageResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result, err, shared := s.group.Do(req.fingerprint(), func() (interface{}, error) {
		return s.resolve(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("resolution shared across concurrent requests",
			"core_hash", req.CoreHash,
		)
	}
	return result.(*resolve.CoverageResult), nil
}

func (s *Service) resolve(ctx context.Context, req Request) (*resolve.CoverageResult, error) {
	start := time.Now()

	slices, err := s.store.ListSlices(ctx, req.CoreHash, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list slices: %w", err)
	}

	query := resolve.Query{
		Dates: v1.DateRange(req.Start, req.End),
		Signature: v1.Signature{
			CoreHash:      req.CoreHash,
			ContextHashes: s.contexts.ContextHashes(),
		},
		BreakdownDimensions: req.BreakdownDimensions,
	}

	result, err := resolve.Resolve(query, slices, s.contexts.Definitions(), s.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	slog.Debug("resolved coverage request",
		"core_hash", req.CoreHash,
		"dates", len(query.Dates),
		"candidate_slices", len(slices),
		"fully_covered", result.FullyCovered,
		"uncovered_dates", len(result.UncoveredDates),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// InvalidateSignatureCache drops all memoized signature parses. Callers
// use it after the taxonomy is reloaded.
func (s *Service) InvalidateSignatureCache() {
	s.sigCache.Clear()
}
