package v1

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date is a calendar day in ISO-8601 form ("2006-01-02").
// Lexicographic comparison matches chronological order, so Date values
// can be used directly as sortable map keys.
type Date string

const dateLayout = "2006-01-02"

// ParseDate validates and normalizes an ISO-8601 calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(t.Format(dateLayout)), nil
}

// Time returns the UTC midnight instant of the day.
// Must only be called on a Date produced by ParseDate.
func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return Date(d.Time().AddDate(0, 0, 1).Format(dateLayout))
}

// Before reports whether d is chronologically before other.
func (d Date) Before(other Date) bool { return string(d) < string(other) }

// DateRange returns every day from from to to inclusive.
// Returns nil when to precedes from.
func DateRange(from, to Date) []Date {
	if to.Before(from) {
		return nil
	}
	var out []Date
	for d := from; !to.Before(d); d = d.Next() {
		out = append(out, d)
	}
	return out
}

// Context-hash sentinel values that may appear literally in persisted
// signatures. A sentinel never matches any hash, including itself.
const (
	HashMissing = "missing"
	HashError   = "error"
)

// Signature is the combined identity of a dataset: the semantic core
// definition plus the taxonomy version of every dimension the data was
// partitioned by. Two datasets "mean the same thing" only when both parts
// match exactly.
type Signature struct {
	CoreHash      string            `json:"core_hash"`
	ContextHashes map[string]string `json:"context_hashes,omitempty"`
}

// ContextHash returns the taxonomy hash recorded for key.
// An absent entry is indistinguishable from the "missing" sentinel.
func (s Signature) ContextHash(key string) string {
	h, ok := s.ContextHashes[key]
	if !ok || h == "" {
		return HashMissing
	}
	return h
}

// Canonical renders the signature as a deterministic string: core hash
// followed by context hashes in key order. Used for grouping keys and the
// final selection tie-break, where byte ordering must not depend on map
// iteration.
func (s Signature) Canonical() string {
	keys := make([]string, 0, len(s.ContextHashes))
	for k := range s.ContextHashes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("core=")
	b.WriteString(s.CoreHash)
	for _, k := range keys {
		b.WriteString(";")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(s.ContextHashes[k])
	}
	return b.String()
}

// ParseSignature decodes a persisted signature document. Persisted
// signatures are loosely typed (legacy rows may carry arbitrary JSON), so
// parsing is total: a malformed document yields ok=false, never a panic or
// an error to propagate.
func ParseSignature(raw []byte) (Signature, bool) {
	var sig Signature
	if err := json.Unmarshal(raw, &sig); err != nil {
		return Signature{}, false
	}
	if strings.TrimSpace(sig.CoreHash) == "" {
		return Signature{}, false
	}
	return sig, true
}

// SeriesPoint is one day of observed counts: n trials, k outcomes.
// Decimal arithmetic keeps downstream sums exact.
type SeriesPoint struct {
	Date Date            `json:"date"`
	N    decimal.Decimal `json:"n"`
	K    decimal.Decimal `json:"k"`
}

// Slice is one retrieved dataset scoped to a specific (possibly empty) set
// of dimension-value constraints. Slices are immutable once stored; the
// resolution engine only ever reads them.
type Slice struct {
	// ID is the unique identifier of the retrieval. Assigned by ingestion
	// when the client does not provide one.
	ID string `json:"id"`

	// DimensionConstraints maps dimension key to the constraint expression
	// the data was retrieved under. Empty means uncontexted (no breakdown).
	DimensionConstraints map[string]string `json:"dimension_constraints,omitempty"`

	// Signature is kept as raw JSON: rows written by earlier versions may
	// not decode into the current shape, and a malformed signature must
	// exclude the slice rather than break the read path.
	Signature json.RawMessage `json:"signature"`

	// Series holds the per-day counts, date-unique.
	Series []SeriesPoint `json:"series"`

	// RetrievedAt is when the upstream fetch completed (server clock of the
	// fetcher). Drives duplicate resolution and generation recency.
	RetrievedAt time.Time `json:"retrieved_at"`

	// WindowFrom/WindowTo bound the date range the retrieval was asked to
	// cover. Optional; empty when the fetcher did not record them.
	WindowFrom Date `json:"window_from,omitempty"`
	WindowTo   Date `json:"window_to,omitempty"`
}

// Validate ensures the slice envelope is structurally sound for ingestion.
// Resolution applies its own, more lenient checks so legacy rows degrade to
// diagnostics instead of errors; ingestion rejects bad input up front.
func (s *Slice) Validate() error {
	if _, ok := ParseSignature(s.Signature); !ok {
		return fmt.Errorf("signature must be an object with a non-empty core_hash")
	}

	if len(s.Series) == 0 {
		return fmt.Errorf("series must not be empty")
	}

	seen := make(map[Date]struct{}, len(s.Series))
	for i, p := range s.Series {
		if _, err := ParseDate(string(p.Date)); err != nil {
			return fmt.Errorf("series[%d]: %w", i, err)
		}
		if _, dup := seen[p.Date]; dup {
			return fmt.Errorf("series[%d]: duplicate date %s", i, p.Date)
		}
		seen[p.Date] = struct{}{}
	}

	if s.RetrievedAt.IsZero() {
		return fmt.Errorf("retrieved_at is required")
	}

	if s.WindowFrom != "" {
		if _, err := ParseDate(string(s.WindowFrom)); err != nil {
			return fmt.Errorf("window_from: %w", err)
		}
	}
	if s.WindowTo != "" {
		if _, err := ParseDate(string(s.WindowTo)); err != nil {
			return fmt.Errorf("window_to: %w", err)
		}
	}
	if s.WindowFrom != "" && s.WindowTo != "" && s.WindowTo.Before(s.WindowFrom) {
		return fmt.Errorf("window_to %s precedes window_from %s", s.WindowTo, s.WindowFrom)
	}

	return nil
}

// Point returns the series point for a given date, if present.
func (s *Slice) Point(d Date) (SeriesPoint, bool) {
	for _, p := range s.Series {
		if p.Date == d {
			return p, true
		}
	}
	return SeriesPoint{}, false
}
