package resolve

import (
	"sort"
	"strings"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

// DedupeKey identifies slices that describe the same retrieval: same
// constraints, same signature, same requested window. Retrievals differing
// only in when they ran collide on this key; the freshest one wins.
func DedupeKey(constraints map[string]string, sig v1.Signature, windowFrom, windowTo v1.Date) string {
	keys := make([]string, 0, len(constraints))
	for k := range constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(constraints[k])
		b.WriteString("&")
	}
	b.WriteString("|")
	b.WriteString(sig.Canonical())
	b.WriteString("|")
	b.WriteString(string(windowFrom))
	b.WriteString("..")
	b.WriteString(string(windowTo))
	return b.String()
}

// dedupe collapses duplicate retrievals to the one with the latest
// RetrievedAt (ties broken by smallest ID so the survivor does not depend on
// input order). Runs before grouping so duplicate-inflated sums cannot
// occur. Returns survivors sorted by ID plus the number removed.
func dedupe(members []member) ([]member, int) {
	best := make(map[string]member, len(members))
	removed := 0

	for _, m := range members {
		key := DedupeKey(m.slice.DimensionConstraints, m.sig, m.slice.WindowFrom, m.slice.WindowTo)
		cur, ok := best[key]
		if !ok {
			best[key] = m
			continue
		}
		removed++
		if m.slice.RetrievedAt.After(cur.slice.RetrievedAt) ||
			(m.slice.RetrievedAt.Equal(cur.slice.RetrievedAt) && m.slice.ID < cur.slice.ID) {
			best[key] = m
		}
	}

	out := make([]member, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].slice.ID < out[j].slice.ID })
	return out, removed
}
