package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.NotFound("project", "p1"), http.StatusNotFound},
		{"validation", domain.Invalid("bookIds", "must be an array"), http.StatusBadRequest},
		{"permission", fmt.Errorf("x: %w", domain.ErrPermissionDenied), http.StatusForbidden},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized},
		{"inconsistency wrapping not found", &domain.InconsistencyError{Op: "op", Err: domain.NotFound("child profile", "c")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func serve(h gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

// TestRespond tests success, error and inconsistency-warning responses
func TestRespond(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		w := serve(func(c *gin.Context) { Respond(c, http.StatusCreated, gin.H{"_id": "x"}, nil) })
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"_id":"x"}`, w.Body.String())
		assert.Empty(t, w.Header().Get(ConsistencyWarningHeader))
	})

	t.Run("not found", func(t *testing.T) {
		w := serve(func(c *gin.Context) { Respond(c, http.StatusOK, nil, domain.NotFound("project", "p1")) })
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"project \"p1\": not found"}`, w.Body.String())
	})

	t.Run("internal errors are not echoed", func(t *testing.T) {
		w := serve(func(c *gin.Context) { Respond(c, http.StatusOK, nil, errors.New("dial tcp: refused")) })
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"message":"internal server error"}`, w.Body.String())
	})

	t.Run("inconsistency keeps the primary result", func(t *testing.T) {
		ierr := &domain.InconsistencyError{Op: "OnBookLoanCreated", Entity: "child profile", ID: "c1", Err: errors.New("timeout")}
		w := serve(func(c *gin.Context) { Respond(c, http.StatusCreated, gin.H{"_id": "l1"}, ierr) })
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"_id":"l1"}`, w.Body.String())
		assert.Contains(t, w.Header().Get(ConsistencyWarningHeader), "OnBookLoanCreated")
	})
}
