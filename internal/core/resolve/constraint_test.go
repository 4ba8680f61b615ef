package resolve

import (
	"testing"
	"time"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		raw  string
		want Constraint
	}{
		{"google", Constraint{Kind: ConstraintValue, Value: "google"}},
		{"  google  ", Constraint{Kind: ConstraintValue, Value: "google"}},
		{"any", Constraint{Kind: ConstraintAnyValue}},
		{"ANY", Constraint{Kind: ConstraintAnyValue}},
		{"*", Constraint{Kind: ConstraintAnyValue}},
		{"", Constraint{Kind: ConstraintAnyValue}},
		{"case:returning", Constraint{Kind: ConstraintCaseSelector, Value: "returning"}},
		{"!google", Constraint{Kind: ConstraintExclusion, Value: "google"}},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			require.Equal(t, tc.want, ParseConstraint(tc.raw))
		})
	}
}

func TestEligible(t *testing.T) {
	now := time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC)
	point := v1.SeriesPoint{Date: "2025-11-01", N: decimal.NewFromInt(1), K: decimal.Zero}

	tests := []struct {
		name        string
		slice       *v1.Slice
		wantSkipped bool
	}{
		{
			name: "single value constraints pass",
			slice: &v1.Slice{
				ID:                   "ok",
				DimensionConstraints: map[string]string{"channel": "google"},
				Series:               []v1.SeriesPoint{point},
				RetrievedAt:          now,
			},
		},
		{
			name: "uncontexted slice passes",
			slice: &v1.Slice{
				ID:          "plain",
				Series:      []v1.SeriesPoint{point},
				RetrievedAt: now,
			},
		},
		{
			name: "any-value selector cannot partition",
			slice: &v1.Slice{
				ID:                   "any",
				DimensionConstraints: map[string]string{"channel": "any"},
				Series:               []v1.SeriesPoint{point},
				RetrievedAt:          now,
			},
			wantSkipped: true,
		},
		{
			name: "case selector cannot partition",
			slice: &v1.Slice{
				ID:                   "case",
				DimensionConstraints: map[string]string{"audience": "case:returning"},
				Series:               []v1.SeriesPoint{point},
				RetrievedAt:          now,
			},
			wantSkipped: true,
		},
		{
			name: "exclusion cannot partition",
			slice: &v1.Slice{
				ID:                   "excl",
				DimensionConstraints: map[string]string{"channel": "!google"},
				Series:               []v1.SeriesPoint{point},
				RetrievedAt:          now,
			},
			wantSkipped: true,
		},
		{
			name: "empty series is malformed",
			slice: &v1.Slice{
				ID:          "noseries",
				RetrievedAt: now,
			},
			wantSkipped: true,
		},
		{
			name: "zero retrieval timestamp is malformed",
			slice: &v1.Slice{
				ID:     "notime",
				Series: []v1.SeriesPoint{point},
			},
			wantSkipped: true,
		},
		{
			name: "duplicate series dates are malformed",
			slice: &v1.Slice{
				ID:          "dupdate",
				Series:      []v1.SeriesPoint{point, point},
				RetrievedAt: now,
			},
			wantSkipped: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, detail := eligible(tc.slice)
			if tc.wantSkipped {
				require.Nil(t, values)
				require.NotNil(t, detail)
				return
			}
			require.Nil(t, detail)
			require.NotNil(t, values)
		})
	}
}
