package projection

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	httperr "github.com/coverline-io/coverline/internal/core/errors"
	"github.com/coverline-io/coverline/internal/resolution"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/series/:core_hash", s.HandleQuerySeries)
}

// HandleQuerySeries handles GET /v1/series/:core_hash
// Query parameters: start, end, breakdown (comma-separated)
func (s *Service) HandleQuerySeries(c *gin.Context) {
	var uri struct {
		CoreHash string `uri:"core_hash" binding:"required"`
	}
	var query struct {
		Start     string `form:"start" binding:"required"`
		End       string `form:"end" binding:"required"`
		Breakdown string `form:"breakdown"`
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	var breakdown []string
	if query.Breakdown != "" {
		breakdown = strings.Split(query.Breakdown, ",")
	}

	resp, err := s.QuerySeries(c.Request.Context(), SeriesQueryRequest{
		CoreHash:            uri.CoreHash,
		Start:               v1.Date(query.Start),
		End:                 v1.Date(query.End),
		BreakdownDimensions: breakdown,
	})
	if err != nil {
		if errors.Is(err, resolution.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid series query",
				Details:   err.Error(),
			})
			return
		}

		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query series",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
