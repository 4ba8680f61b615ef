package planner

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	httperr "github.com/coverline-io/coverline/internal/core/errors"
	"github.com/coverline-io/coverline/internal/resolution"
)

// RegisterRoutes registers all planner API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/plan", s.HandlePlan)
}

// HandlePlan handles POST /v1/plan
func (s *Service) HandlePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid plan request body",
			Details:   err.Error(),
		})
		return
	}

	plan, err := s.PlanFetch(c.Request.Context(), resolution.Request{
		CoreHash:            req.CoreHash,
		Start:               v1.Date(req.Start),
		End:                 v1.Date(req.End),
		BreakdownDimensions: req.BreakdownDimensions,
	})
	if err != nil {
		if errors.Is(err, resolution.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid plan request",
				Details:   err.Error(),
			})
			return
		}

		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to build fetch plan",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, plan)
}
