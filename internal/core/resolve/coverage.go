package resolve

import (
	"strconv"
	"strings"
	"time"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

// candidate is a generation that fully satisfies one date and is eligible
// for winner selection.
type candidate struct {
	gen          *generation
	kind         SelectionKind
	contributors []member
	recency      time.Time // min RetrievedAt over contributors
}

// dateFailure is a coverage-stage rejection observed while analyzing one
// (generation, date) pair. Kept so uncovered dates can report the most
// specific reason seen.
type dateFailure struct {
	reason string
	detail map[string]string
}

// analyzeDate evaluates whether a generation fully satisfies one date.
// Returns a candidate on success; otherwise a failure when the generation
// had data for the date but could not prove completeness, or nil when it
// simply has nothing for the date.
func analyzeDate(g *generation, date v1.Date, q Query, defs ContextDefinitions, maxCombinations int) (*candidate, *dateFailure) {
	kind, missingDim, usable := classify(g, q.BreakdownDimensions)
	if !usable {
		if missingDim != "" {
			return nil, &dateFailure{
				reason: ReasonGroupMissingQueryDimension(missingDim),
				detail: map[string]string{"generation": g.dimsKey()},
			}
		}
		// Finer-grained than a non-empty requested breakdown: reduction
		// toward a specific breakdown is not supported.
		return nil, nil
	}

	contributors := contributorsFor(g, date)
	if len(contributors) == 0 {
		return nil, nil
	}

	// Per-dimension MECE: every valid value must be represented among the
	// date's contributors.
	for _, dim := range g.dims {
		valid, ok := defs[dim]
		if !ok {
			return nil, &dateFailure{
				reason: ReasonDimensionNotMECE(dim),
				detail: map[string]string{"generation": g.dimsKey(), "problem": "no context definition for dimension"},
			}
		}
		represented := make(map[string]struct{}, len(contributors))
		for _, m := range contributors {
			represented[m.values[dim]] = struct{}{}
		}
		for _, v := range valid {
			if _, ok := represented[v]; !ok {
				return nil, &dateFailure{
					reason: ReasonDimensionNotMECE(dim),
					detail: map[string]string{"generation": g.dimsKey(), "missing_value": v},
				}
			}
		}
	}

	// Combinations: completeness per dimension is not enough; the date's
	// contributors must tile the full Cartesian product of the key set.
	// Bounded by the product size, overflow-safe, and short-circuiting on
	// the first confirmed gap or overlap.
	product := 1
	for _, dim := range g.dims {
		product *= len(defs[dim])
		if product > maxCombinations {
			return nil, &dateFailure{
				reason: ReasonMissingCombinations,
				detail: map[string]string{
					"generation": g.dimsKey(),
					"problem":    "combination space exceeds limit " + strconv.Itoa(maxCombinations),
				},
			}
		}
	}

	if len(contributors) != product {
		return nil, &dateFailure{
			reason: ReasonMissingCombinations,
			detail: map[string]string{
				"generation": g.dimsKey(),
				"expected":   strconv.Itoa(product),
				"got":        strconv.Itoa(len(contributors)),
			},
		}
	}

	seen := make(map[string]struct{}, len(contributors))
	for _, m := range contributors {
		tuple := combinationTuple(m.values, g.dims)
		if _, dup := seen[tuple]; dup {
			// Two contributors claim the same cell: the partition overlaps
			// and therefore some other cell must be absent.
			return nil, &dateFailure{
				reason: ReasonMissingCombinations,
				detail: map[string]string{"generation": g.dimsKey(), "duplicate_combination": tuple},
			}
		}
		seen[tuple] = struct{}{}
	}

	recency := contributors[0].slice.RetrievedAt
	for _, m := range contributors[1:] {
		if m.slice.RetrievedAt.Before(recency) {
			recency = m.slice.RetrievedAt
		}
	}

	return &candidate{gen: g, kind: kind, contributors: contributors, recency: recency}, nil
}

// classify determines how a generation relates to the requested breakdown:
// exact match, reduction (strict superset of an empty breakdown), missing a
// required dimension, or unusable.
func classify(g *generation, breakdown []string) (kind SelectionKind, missingDim string, usable bool) {
	for _, key := range breakdown {
		if !g.hasDim(key) {
			return "", key, false
		}
	}

	if len(g.dims) == len(breakdown) {
		// Every requested key is present and the sizes match, so the sets
		// are equal. Includes the uncontexted/uncontexted case.
		return SelectionExact, "", true
	}

	if len(breakdown) == 0 {
		return SelectionReduction, "", true
	}

	return "", "", false
}

// contributorsFor returns the generation members carrying a series point
// for the date, ordered by slice ID.
func contributorsFor(g *generation, date v1.Date) []member {
	var out []member
	for _, m := range g.members {
		if _, ok := m.slice.Point(date); ok {
			out = append(out, m)
		}
	}
	return out
}

// combinationTuple renders a contributor's position in the Cartesian
// product of the generation's key set.
func combinationTuple(values map[string]string, dims []string) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = values[d]
	}
	return strings.Join(parts, "|")
}

// reasonRank orders failure reasons by specificity: the closer a generation
// got to covering the date, the more useful the explanation. Coverage-stage
// reasons outrank signature-stage ones, which outrank the bare gap.
func reasonRank(reason string) int {
	switch {
	case reason == ReasonMissingCombinations:
		return 5
	case strings.HasPrefix(reason, "dimension_not_mece:"):
		return 5
	case strings.HasPrefix(reason, "group_missing_query_dimension:"):
		return 4
	case strings.HasPrefix(reason, "context_hash_unavailable:"):
		return 3
	case reason == ReasonContextDefChanged:
		return 3
	case reason == ReasonCoreHashMismatch:
		return 2
	default:
		return 1
	}
}

// mostSpecific keeps the highest-ranked failure per date; on equal rank the
// lexicographically smaller reason wins so the report is deterministic.
func mostSpecific(cur, next *dateFailure) *dateFailure {
	if cur == nil {
		return next
	}
	if next == nil {
		return cur
	}
	cr, nr := reasonRank(cur.reason), reasonRank(next.reason)
	if nr > cr || (nr == cr && next.reason < cur.reason) {
		return next
	}
	return cur
}
