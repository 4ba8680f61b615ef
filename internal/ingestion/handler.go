package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
	httperr "github.com/coverline-io/coverline/internal/core/errors"
	"github.com/coverline-io/coverline/internal/core/storage"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to persist slice"
	msgDuplicateSlice = "Slice already exists"
)

// ingestionError carries the structured HTTP error shape from a helper back
// to the orchestrator. Helpers return this instead of writing to gin.Context
// directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles HTTP POST requests for slice ingestion.
func (s *Service) IngestHandler(c *gin.Context) {
	slice, payloadSize, err := s.parseSlice(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.validateSlice(slice); err != nil {
		writeError(c, err)
		return
	}

	slog.Info("Received slice",
		"slice_id", slice.ID,
		"series_points", len(slice.Series),
		"dimension_constraints", len(slice.DimensionConstraints),
		"payload_size", payloadSize)

	if err := s.persistSlice(c.Request.Context(), slice); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "stored", "slice_id": slice.ID})
}

// parseSlice reads the raw request body and binds it into a Slice struct.
// Returns the parsed slice and the raw payload size (used for structured
// logging upstream).
func (s *Service) parseSlice(c *gin.Context) (*v1.Slice, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var slice v1.Slice
	if err := c.ShouldBindJSON(&slice); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	if slice.ID == "" {
		slice.ID = uuid.NewString()
	}
	if slice.RetrievedAt.IsZero() {
		// Callers that stream results as they fetch may omit the timestamp.
		slice.RetrievedAt = time.Now().UTC()
	}
	return &slice, len(bodyBytes), nil
}

// validateSlice runs structural validation on the parsed slice.
func (s *Service) validateSlice(slice *v1.Slice) *ingestionError {
	if err := slice.Validate(); err != nil {
		slog.Warn("Slice validation failed", "error", err, "slice_id", slice.ID)
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpSliceValidationError,
			message:    err.Error(),
		}
	}
	return nil
}

// persistSlice saves the slice to the backing store.
func (s *Service) persistSlice(ctx context.Context, slice *v1.Slice) *ingestionError {
	if err := s.store.SaveSlice(ctx, slice); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Info("Duplicate slice rejected", "slice_id", slice.ID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateSliceError,
				message:    msgDuplicateSlice,
			}
		}

		slog.Error("Failed to persist slice", "error", err, "slice_id", slice.ID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
