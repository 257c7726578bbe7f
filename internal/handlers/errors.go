package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised on 503 responses caused by pool pressure
const retryAfterSeconds = 1

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondServiceError maps the lead error taxonomy onto HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", verr, err)
	case errors.As(err, &maxBytesErr):
		respondError(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
	case apperrors.IsTransient(err):
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry", err)
	case c.Request.Context().Err() != nil && errors.Is(err, c.Request.Context().Err()):
		// client went away; status is for the log only
		respondError(c, 499, "Request cancelled", err)
	default:
		respondError(c, http.StatusInternalServerError, "Failed to save lead", err)
	}
}
