// Package projection implements the read path: it answers series queries
// from cached slices through the resolution engine and reports how fresh
// the winning data is.
package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/coverline-io/coverline/internal/core/resolve"
	"github.com/coverline-io/coverline/internal/resolution"
)

// Service implements the projection/query layer.
type Service struct {
	resolver *resolution.Service
	nowFn    func() time.Time
}

// NewService creates a new projection service.
func NewService(resolver *resolution.Service) *Service {
	return &Service{
		resolver: resolver,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// QuerySeries retrieves the aggregated series for a date range.
func (s *Service) QuerySeries(ctx context.Context, req SeriesQueryRequest) (*SeriesQueryResponse, error) {
	result, err := s.resolver.Resolve(ctx, resolution.Request{
		CoreHash:            req.CoreHash,
		Start:               req.Start,
		End:                 req.End,
		BreakdownDimensions: req.BreakdownDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve series: %w", err)
	}

	values := make([]SeriesValue, 0, len(result.Values))
	for _, v := range result.Values {
		values = append(values, SeriesValue{Date: v.Date, N: v.N, K: v.K})
	}

	dataThrough := selectionDataThrough(result.SelectionTrace)
	staleness := 0
	if !dataThrough.IsZero() {
		staleness = int(s.nowFn().Sub(dataThrough).Seconds())
		if staleness < 0 {
			staleness = 0
		}
	}

	return &SeriesQueryResponse{
		CoreHash:            req.CoreHash,
		Start:               req.Start,
		End:                 req.End,
		BreakdownDimensions: req.BreakdownDimensions,
		FullyCovered:        result.FullyCovered,
		DataThrough:         dataThrough,
		StalenessSeconds:    staleness,
		Values:              values,
		UncoveredDates:      result.UncoveredDates,
		Diagnostics:         result.Diagnostics,
	}, nil
}

// selectionDataThrough reports the series' effective freshness: the oldest
// retrieval timestamp among the winning generations. Any date answered by
// staler data bounds the whole response.
func selectionDataThrough(trace []resolve.Selection) time.Time {
	var oldest time.Time
	for _, sel := range trace {
		if oldest.IsZero() || sel.RetrievedAt.Before(oldest) {
			oldest = sel.RetrievedAt
		}
	}
	return oldest
}
