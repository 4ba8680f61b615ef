package planner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/resolve"
	"github.com/coverline-io/coverline/internal/core/storage/memory"
	"github.com/coverline-io/coverline/internal/resolution"
)

func TestCoalesceWindows(t *testing.T) {
	tests := []struct {
		name      string
		uncovered []resolve.UncoveredDate
		expected  []FetchWindow
	}{
		{
			name:      "empty input",
			uncovered: nil,
			expected:  nil,
		},
		{
			name: "single date",
			uncovered: []resolve.UncoveredDate{
				{Date: "2025-11-03", Reason: resolve.ReasonGapInCoverage},
			},
			expected: []FetchWindow{
				{From: "2025-11-03", To: "2025-11-03", Days: 1, Reason: resolve.ReasonGapInCoverage},
			},
		},
		{
			name: "contiguous run with one reason",
			uncovered: []resolve.UncoveredDate{
				{Date: "2025-11-03", Reason: resolve.ReasonGapInCoverage},
				{Date: "2025-11-04", Reason: resolve.ReasonGapInCoverage},
				{Date: "2025-11-05", Reason: resolve.ReasonGapInCoverage},
			},
			expected: []FetchWindow{
				{From: "2025-11-03", To: "2025-11-05", Days: 3, Reason: resolve.ReasonGapInCoverage},
			},
		},
		{
			name: "reason change splits the window",
			uncovered: []resolve.UncoveredDate{
				{Date: "2025-11-03", Reason: resolve.ReasonGapInCoverage},
				{Date: "2025-11-04", Reason: resolve.ReasonCoreHashMismatch},
				{Date: "2025-11-05", Reason: resolve.ReasonCoreHashMismatch},
			},
			expected: []FetchWindow{
				{From: "2025-11-03", To: "2025-11-03", Days: 1, Reason: resolve.ReasonGapInCoverage},
				{From: "2025-11-04", To: "2025-11-05", Days: 2, Reason: resolve.ReasonCoreHashMismatch},
			},
		},
		{
			name: "date gap splits the window",
			uncovered: []resolve.UncoveredDate{
				{Date: "2025-11-03", Reason: resolve.ReasonGapInCoverage},
				{Date: "2025-11-05", Reason: resolve.ReasonGapInCoverage},
			},
			expected: []FetchWindow{
				{From: "2025-11-03", To: "2025-11-03", Days: 1, Reason: resolve.ReasonGapInCoverage},
				{From: "2025-11-05", To: "2025-11-05", Days: 1, Reason: resolve.ReasonGapInCoverage},
			},
		},
		{
			name: "month boundary is contiguous",
			uncovered: []resolve.UncoveredDate{
				{Date: "2025-11-30", Reason: resolve.ReasonGapInCoverage},
				{Date: "2025-12-01", Reason: resolve.ReasonGapInCoverage},
			},
			expected: []FetchWindow{
				{From: "2025-11-30", To: "2025-12-01", Days: 2, Reason: resolve.ReasonGapInCoverage},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, CoalesceWindows(tc.uncovered))
		})
	}
}

func planTestService(t *testing.T, dates []v1.Date) *Service {
	t.Helper()

	store := memory.NewStore()
	sig, err := json.Marshal(map[string]any{"core_hash": "abc"})
	require.NoError(t, err)

	if len(dates) > 0 {
		series := make([]v1.SeriesPoint, 0, len(dates))
		for _, d := range dates {
			series = append(series, v1.SeriesPoint{
				Date: d,
				N:    decimal.NewFromInt(100),
				K:    decimal.NewFromInt(7),
			})
		}
		require.NoError(t, store.SaveSlice(context.Background(), &v1.Slice{
			ID:          "slice-1",
			Signature:   sig,
			Series:      series,
			RetrievedAt: time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC),
			WindowFrom:  dates[0],
			WindowTo:    dates[len(dates)-1],
		}))
	}

	contexts := staticContexts{
		defs:   map[string][]string{"channel": {"google", "meta"}},
		hashes: map[string]string{"channel": "ch-v1"},
	}
	return NewService(resolution.NewService(store, contexts, 16, 0))
}

type staticContexts struct {
	defs   map[string][]string
	hashes map[string]string
}

func (c staticContexts) Definitions() map[string][]string { return c.defs }

func (c staticContexts) Hash(key string) (string, bool) {
	h, ok := c.hashes[key]
	return h, ok
}

func (c staticContexts) ContextHashes() map[string]string { return c.hashes }

func TestService_PlanFetch_FullyCovered(t *testing.T) {
	svc := planTestService(t, []v1.Date{"2025-11-01", "2025-11-02", "2025-11-03"})

	plan, err := svc.PlanFetch(context.Background(), resolution.Request{
		CoreHash: "abc",
		Start:    "2025-11-01",
		End:      "2025-11-03",
	})
	require.NoError(t, err)
	require.True(t, plan.FullyCovered)
	require.Equal(t, 3, plan.CoveredDates)
	require.Empty(t, plan.FetchWindows)
}

func TestService_PlanFetch_CoalescesUncoveredTail(t *testing.T) {
	svc := planTestService(t, []v1.Date{"2025-11-01"})

	plan, err := svc.PlanFetch(context.Background(), resolution.Request{
		CoreHash: "abc",
		Start:    "2025-11-01",
		End:      "2025-11-05",
	})
	require.NoError(t, err)
	require.False(t, plan.FullyCovered)
	require.Equal(t, 1, plan.CoveredDates)
	require.Equal(t, 4, plan.UncoveredDates)
	require.Equal(t, []FetchWindow{
		{From: "2025-11-02", To: "2025-11-05", Days: 4, Reason: resolve.ReasonGapInCoverage},
	}, plan.FetchWindows)
}

func TestService_PlanFetch_EmptyCacheFetchesWholeRange(t *testing.T) {
	svc := planTestService(t, nil)

	plan, err := svc.PlanFetch(context.Background(), resolution.Request{
		CoreHash: "abc",
		Start:    "2025-11-01",
		End:      "2025-11-03",
	})
	require.NoError(t, err)
	require.False(t, plan.FullyCovered)
	require.Len(t, plan.FetchWindows, 1)
	require.Equal(t, v1.Date("2025-11-01"), plan.FetchWindows[0].From)
	require.Equal(t, v1.Date("2025-11-03"), plan.FetchWindows[0].To)
}
