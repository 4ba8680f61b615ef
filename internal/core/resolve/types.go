// Package resolve decides which previously retrieved slices can legally be
// combined to answer a query, and aggregates the winning combination.
//
// The pipeline is linear and pure: signature filter, eligibility filter,
// deduplication, generation grouping, per-date coverage analysis, winner
// selection, aggregation. Semantically incompatible data is never combined
// and overlapping partitions collected under different schemes are never
// double counted.
package resolve

import (
	"time"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/shopspring/decimal"
)

// ContextDefinitions maps a dimension key to the full ordered set of valid
// value identifiers for that dimension. Supplied by the caller from the live
// taxonomy; the engine treats it as ground truth and never infers values
// from the data itself.
type ContextDefinitions map[string][]string

// Query describes what the caller wants covered.
type Query struct {
	// Dates are the requested days. Normalized (sorted, de-duplicated)
	// internally; callers may pass any order.
	Dates []v1.Date

	// Signature is the live identity the cached data must match.
	Signature v1.Signature

	// BreakdownDimensions is the requested partitioning. Empty means "one
	// aggregated total per date".
	BreakdownDimensions []string
}

// DefaultMaxCombinations bounds the Cartesian-product size the combinations
// check will reason about. A generation whose combination space exceeds the
// cap is reported as missing_combinations rather than risking unbounded
// work.
const DefaultMaxCombinations = 100_000

// Options tunes a single resolution call.
type Options struct {
	// MaxCombinations caps the combination space per (generation, date).
	// Zero or negative selects DefaultMaxCombinations.
	MaxCombinations int

	// SignatureCache, when non-nil, memoizes parsed slice signatures across
	// calls. It must be an explicit, caller-owned object (see resolution
	// service); the engine itself holds no state between calls.
	SignatureCache SignatureCache
}

func (o Options) maxCombinations() int {
	if o.MaxCombinations <= 0 {
		return DefaultMaxCombinations
	}
	return o.MaxCombinations
}

// SignatureCache memoizes signature parsing. Implementations must be safe
// for concurrent use; the engine only reads through it.
type SignatureCache interface {
	Get(raw string) (v1.Signature, bool)
	Put(raw string, sig v1.Signature)
}

// Failure reasons returned as data in CoverageResult. Data-quality problems
// are always reported this way, never raised.
const (
	ReasonCoreHashMismatch      = "signature_incompatible:core_hash_mismatch"
	ReasonContextDefChanged     = "context_definition_changed"
	ReasonMissingCombinations   = "missing_combinations"
	ReasonGapInCoverage         = "gap_in_coverage"
	ReasonMalformedSliceSkipped = "malformed_slice_skipped"
)

// ReasonContextHashUnavailable marks a dimension whose taxonomy hash is the
// "missing"/"error" sentinel on either side of the comparison.
func ReasonContextHashUnavailable(key string) string {
	return "context_hash_unavailable:" + key
}

// ReasonDimensionNotMECE marks a dimension whose represented values do not
// form the complete value set.
func ReasonDimensionNotMECE(key string) string {
	return "dimension_not_mece:" + key
}

// ReasonGroupMissingQueryDimension marks a generation that lacks a dimension
// the query explicitly requires.
func ReasonGroupMissingQueryDimension(key string) string {
	return "group_missing_query_dimension:" + key
}

// SelectionKind distinguishes how a winning generation satisfied the query.
type SelectionKind string

const (
	// SelectionExact means the generation's key set equals the requested
	// breakdown.
	SelectionExact SelectionKind = "exact"

	// SelectionReduction means a finer-grained complete generation was
	// summed down to answer an uncontexted query.
	SelectionReduction SelectionKind = "reduction"
)

// CoveredValue is the aggregated counts for one covered date.
type CoveredValue struct {
	Date v1.Date         `json:"date"`
	N    decimal.Decimal `json:"n"`
	K    decimal.Decimal `json:"k"`
}

// UncoveredDate explains why a requested date could not be answered.
type UncoveredDate struct {
	Date   v1.Date           `json:"date"`
	Reason string            `json:"reason"`
	Detail map[string]string `json:"detail,omitempty"`
}

// Selection records, for one covered date, which generation won and which
// slices contributed. Emitted for diagnostics and test assertions, not for
// user display.
type Selection struct {
	Date                 v1.Date       `json:"date"`
	DimensionKeys        []string      `json:"dimension_keys"`
	Kind                 SelectionKind `json:"kind"`
	ContributingSliceIDs []string      `json:"contributing_slice_ids"`

	// RetrievedAt is the generation's recency for the date: the minimum
	// retrieval timestamp over the contributing slices. A set of slices is
	// only as fresh as its stalest member.
	RetrievedAt time.Time `json:"retrieved_at"`
}

// SkippedSlice records a slice excluded before grouping.
type SkippedSlice struct {
	SliceID string            `json:"slice_id"`
	Reason  string            `json:"reason"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// Diagnostics carries pipeline-level observations that are not tied to a
// single requested date.
type Diagnostics struct {
	SkippedSlices     []SkippedSlice `json:"skipped_slices,omitempty"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
}

// CoverageResult is the complete answer for one resolution call.
type CoverageResult struct {
	FullyCovered   bool            `json:"fully_covered"`
	Values         []CoveredValue  `json:"values"`
	UncoveredDates []UncoveredDate `json:"uncovered_dates,omitempty"`
	SelectionTrace []Selection     `json:"selection_trace,omitempty"`
	Diagnostics    Diagnostics     `json:"diagnostics"`
}
