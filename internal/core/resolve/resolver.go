package resolve

import (
	"fmt"
	"sort"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/shopspring/decimal"
)

// Resolve answers a query from previously retrieved slices. Pure and
// deterministic: identical inputs produce byte-identical results, inputs are
// never mutated, and no I/O happens. Data-quality problems surface as
// diagnostics inside the result; the returned error is reserved for call
// contract violations (a requested breakdown dimension with no context
// definition), which indicate a caller bug.
func Resolve(q Query, slices []*v1.Slice, defs ContextDefinitions, opts Options) (*CoverageResult, error) {
	q.BreakdownDimensions = normalizeBreakdown(q.BreakdownDimensions)
	for _, key := range q.BreakdownDimensions {
		if _, ok := defs[key]; !ok {
			return nil, fmt.Errorf("resolve: no context definition for breakdown dimension %q", key)
		}
	}

	dates := normalizeDates(q.Dates)
	maxCombinations := opts.maxCombinations()

	result := &CoverageResult{}

	// Per-date best failure observed anywhere in the pipeline. Populated by
	// the signature stage first, refined by the coverage stage.
	failures := make(map[v1.Date]*dateFailure, len(dates))
	requested := make(map[v1.Date]struct{}, len(dates))
	for _, d := range dates {
		requested[d] = struct{}{}
	}

	// Stage 1+2: signature compatibility, then structural eligibility.
	var members []member
	for _, s := range slices {
		sig, ok := parseSignature(s.Signature, opts.SignatureCache)
		if !ok {
			result.Diagnostics.SkippedSlices = append(result.Diagnostics.SkippedSlices, SkippedSlice{
				SliceID: s.ID,
				Reason:  ReasonMalformedSliceSkipped,
				Detail:  map[string]string{"field": "signature", "problem": "unparseable"},
			})
			continue
		}

		if ok, reason := Compatible(sig, q.Signature, sliceKeys(s.DimensionConstraints)); !ok {
			result.Diagnostics.SkippedSlices = append(result.Diagnostics.SkippedSlices, SkippedSlice{
				SliceID: s.ID,
				Reason:  reason,
			})
			// The slice carried data for some requested dates; remember the
			// incompatibility so those dates can explain themselves if
			// nothing else covers them.
			for _, p := range s.Series {
				if _, want := requested[p.Date]; want {
					failures[p.Date] = mostSpecific(failures[p.Date], &dateFailure{reason: reason})
				}
			}
			continue
		}

		values, skipDetail := eligible(s)
		if skipDetail != nil {
			result.Diagnostics.SkippedSlices = append(result.Diagnostics.SkippedSlices, SkippedSlice{
				SliceID: s.ID,
				Reason:  ReasonMalformedSliceSkipped,
				Detail:  skipDetail,
			})
			continue
		}

		members = append(members, member{slice: s, sig: sig, values: values})
	}

	// Stage 3: collapse duplicate retrievals, freshest wins.
	members, result.Diagnostics.DuplicatesRemoved = dedupe(members)

	// Stage 4: partition into generations.
	generations := group(members)

	// Stages 5-7: per date, find satisfying generations, pick one winner,
	// aggregate its contributors.
	for _, date := range dates {
		var cands []*candidate
		for _, g := range generations {
			cand, failure := analyzeDate(g, date, q, defs, maxCombinations)
			if cand != nil {
				cands = append(cands, cand)
				continue
			}
			if failure != nil {
				failures[date] = mostSpecific(failures[date], failure)
			}
		}

		if len(cands) == 0 {
			uncovered := UncoveredDate{Date: date, Reason: ReasonGapInCoverage}
			if f := failures[date]; f != nil {
				uncovered.Reason = f.reason
				uncovered.Detail = f.detail
			}
			result.UncoveredDates = append(result.UncoveredDates, uncovered)
			continue
		}

		sortCandidates(cands)
		winner := cands[0]

		n, k := decimal.Zero, decimal.Zero
		ids := make([]string, 0, len(winner.contributors))
		for _, m := range winner.contributors {
			p, _ := m.slice.Point(date)
			n = n.Add(p.N)
			k = k.Add(p.K)
			ids = append(ids, m.slice.ID)
		}
		sort.Strings(ids)

		result.Values = append(result.Values, CoveredValue{Date: date, N: n, K: k})
		result.SelectionTrace = append(result.SelectionTrace, Selection{
			Date:                 date,
			DimensionKeys:        winner.gen.dims,
			Kind:                 winner.kind,
			ContributingSliceIDs: ids,
			RetrievedAt:          winner.recency,
		})
	}

	result.FullyCovered = len(result.UncoveredDates) == 0
	return result, nil
}

// normalizeDates sorts and de-duplicates the requested dates so the rest of
// the pipeline can treat them as an ordered set.
func normalizeDates(dates []v1.Date) []v1.Date {
	seen := make(map[v1.Date]struct{}, len(dates))
	out := make([]v1.Date, 0, len(dates))
	for _, d := range dates {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// normalizeBreakdown de-duplicates the requested breakdown keys, keeping
// first-occurrence order. A repeated key names the same partition axis, so
// treating it as a distinct requirement would reject every generation on
// key-set size alone.
func normalizeBreakdown(breakdown []string) []string {
	if len(breakdown) < 2 {
		return breakdown
	}
	seen := make(map[string]struct{}, len(breakdown))
	out := make([]string, 0, len(breakdown))
	for _, key := range breakdown {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
