// Package planner turns coverage results into fetch plans: the minimal
// set of date windows a caller must retrieve upstream to fill the cache.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coverline-io/coverline/internal/core/resolve"
	"github.com/coverline-io/coverline/internal/resolution"
)

// Service implements the planning layer over the resolution service.
type Service struct {
	resolver *resolution.Service
}

// NewService creates a new planner service.
func NewService(resolver *resolution.Service) *Service {
	return &Service{resolver: resolver}
}

// PlanFetch resolves coverage for the request and coalesces the uncovered
// dates into fetch windows.
func (s *Service) PlanFetch(ctx context.Context, req resolution.Request) (*Plan, error) {
	result, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve coverage: %w", err)
	}

	plan := &Plan{
		CoreHash:       req.CoreHash,
		Start:          req.Start,
		End:            req.End,
		FullyCovered:   result.FullyCovered,
		CoveredDates:   len(result.Values),
		UncoveredDates: len(result.UncoveredDates),
		FetchWindows:   CoalesceWindows(result.UncoveredDates),
		Diagnostics:    result.Diagnostics,
	}

	if !plan.FullyCovered {
		slog.Info("fetch plan produced",
			"core_hash", req.CoreHash,
			"uncovered_dates", plan.UncoveredDates,
			"fetch_windows", len(plan.FetchWindows),
		)
	}
	return plan, nil
}

// CoalesceWindows merges consecutive uncovered dates that share a reason
// into single fetch windows. Input order follows the coverage result, which
// is already chronological.
func CoalesceWindows(uncovered []resolve.UncoveredDate) []FetchWindow {
	if len(uncovered) == 0 {
		return nil
	}

	var windows []FetchWindow
	current := FetchWindow{
		From:   uncovered[0].Date,
		To:     uncovered[0].Date,
		Days:   1,
		Reason: uncovered[0].Reason,
	}
	for _, u := range uncovered[1:] {
		if u.Date == current.To.Next() && u.Reason == current.Reason {
			current.To = u.Date
			current.Days++
			continue
		}
		windows = append(windows, current)
		current = FetchWindow{From: u.Date, To: u.Date, Days: 1, Reason: u.Reason}
	}
	return append(windows, current)
}
