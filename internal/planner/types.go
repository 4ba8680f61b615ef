package planner

import (
	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/resolve"
)

// PlanRequest represents the body of a plan request.
type PlanRequest struct {
	CoreHash            string   `json:"core_hash" binding:"required"`
	Start               string   `json:"start" binding:"required"`
	End                 string   `json:"end" binding:"required"`
	BreakdownDimensions []string `json:"breakdown_dimensions"`
}

// FetchWindow is one contiguous date range the caller should fetch from the
// upstream source, with the dominant reason the cache could not answer it.
type FetchWindow struct {
	From   v1.Date `json:"from"`
	To     v1.Date `json:"to"`
	Days   int     `json:"days"`
	Reason string  `json:"reason"`
}

// Plan is the planner's answer: either the cache fully covers the request,
// or the minimal set of windows to fetch.
type Plan struct {
	CoreHash       string              `json:"core_hash"`
	Start          v1.Date             `json:"start"`
	End            v1.Date             `json:"end"`
	FullyCovered   bool                `json:"fully_covered"`
	CoveredDates   int                 `json:"covered_dates"`
	UncoveredDates int                 `json:"uncovered_dates"`
	FetchWindows   []FetchWindow       `json:"fetch_windows,omitempty"`
	Diagnostics    resolve.Diagnostics `json:"diagnostics"`
}
