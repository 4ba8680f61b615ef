package projection

import (
	"time"

	"github.com/shopspring/decimal"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	"github.com/coverline-io/coverline/internal/core/resolve"
)

// SeriesQueryRequest represents the query parameters for fetching a series.
type SeriesQueryRequest struct {
	CoreHash            string
	Start               v1.Date
	End                 v1.Date
	BreakdownDimensions []string
}

// SeriesValue is a single date's aggregated point in the response.
type SeriesValue struct {
	Date v1.Date         `json:"date"`
	N    decimal.Decimal `json:"n"`
	K    decimal.Decimal `json:"k"`
}

// SeriesQueryResponse represents the response for a series query.
type SeriesQueryResponse struct {
	CoreHash            string                  `json:"core_hash"`
	Start               v1.Date                 `json:"start"`
	End                 v1.Date                 `json:"end"`
	BreakdownDimensions []string                `json:"breakdown_dimensions,omitempty"`
	FullyCovered        bool                    `json:"fully_covered"`
	DataThrough         time.Time               `json:"data_through"`
	StalenessSeconds    int                     `json:"staleness_seconds"`
	Values              []SeriesValue           `json:"values"`
	UncoveredDates      []resolve.UncoveredDate `json:"uncovered_dates,omitempty"`
	Diagnostics         resolve.Diagnostics     `json:"diagnostics"`
}
