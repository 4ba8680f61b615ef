package resolve

import "sort"

// sortCandidates orders a date's satisfying generations best-first:
//
//  1. exact outranks reduction;
//  2. within equal priority, higher recency wins; recency is the minimum
//     RetrievedAt over the date's contributors, so one stale member drags
//     the whole generation down;
//  3. on an exact priority+recency tie, sorted key-set string ascending,
//     then serialized signature ascending.
//
// Step 3 is the only place in the engine where dimension sets are ordered;
// it exists purely so the same inputs select the same winner regardless of
// map iteration order.
func sortCandidates(cands []*candidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.kind != b.kind {
			return a.kind == SelectionExact
		}
		if !a.recency.Equal(b.recency) {
			return a.recency.After(b.recency)
		}
		ak, bk := a.gen.dimsKey(), b.gen.dimsKey()
		if ak != bk {
			return ak < bk
		}
		return a.gen.bundle < b.gen.bundle
	})
}
