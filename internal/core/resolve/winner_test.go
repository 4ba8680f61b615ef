package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSortCandidates_SignatureBundleBreaksFinalTie(t *testing.T) {
	at := time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC)

	a := &candidate{
		gen:     &generation{dims: []string{"channel"}, bundle: "core=core-a;channel=ctx-1"},
		kind:    SelectionReduction,
		recency: at,
	}
	b := &candidate{
		gen:     &generation{dims: []string{"channel"}, bundle: "core=core-a;channel=ctx-2"},
		kind:    SelectionReduction,
		recency: at,
	}

	// Same kind, same recency, same key set: only the serialized signature
	// separates them, in both input orders.
	cands := []*candidate{b, a}
	sortCandidates(cands)
	require.Equal(t, "core=core-a;channel=ctx-1", cands[0].gen.bundle)

	cands = []*candidate{a, b}
	sortCandidates(cands)
	require.Equal(t, "core=core-a;channel=ctx-1", cands[0].gen.bundle)
}
