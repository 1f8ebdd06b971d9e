package http

import (
	"errors"
	"net/http"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

// ConsistencyWarningHeader carries the description of a companion write
// that failed after the request's primary mutation succeeded.
const ConsistencyWarningHeader = "X-Consistency-Warning"

type ErrorResponse struct {
	Message string `json:"message"`
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInconsistency):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts the request with the status matching err. Server errors are
// attached to the context for the request logger and not echoed back.
func Error(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Message: msg})
}

// Respond writes body with status. An inconsistency does not fail the
// request: the body is still written, with the warning header set.
func Respond(c *gin.Context, status int, body any, err error) {
	if err != nil {
		var ierr *domain.InconsistencyError
		if !errors.As(err, &ierr) {
			Error(c, err)
			return
		}
		c.Header(ConsistencyWarningHeader, ierr.Error())
	}
	c.JSON(status, body)
}

// BadRequest aborts with 400 and msg.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: msg})
}
