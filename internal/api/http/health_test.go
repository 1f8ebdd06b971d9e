package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	get := func(h *HealthHandler, path string) (*httptest.ResponseRecorder, HealthResponse) {
		r := gin.New()
		h.RegisterRoutes(r)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}

	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("liveness ignores dependencies", func(t *testing.T) {
		h := NewHealthHandler("asso-backend", "1.0.0", map[string]Pinger{"store": down})
		w, resp := get(h, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "asso-backend", resp.Service)
	})

	t.Run("readiness all up", func(t *testing.T) {
		h := NewHealthHandler("asso-backend", "1.0.0", map[string]Pinger{"store": up, "redis": nil})
		w, resp := get(h, "/healthz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]string{"store": "up", "redis": "disabled"}, resp.Checks)
	})

	t.Run("readiness with a dependency down", func(t *testing.T) {
		h := NewHealthHandler("asso-backend", "1.0.0", map[string]Pinger{"store": up, "redis": down})
		w, resp := get(h, "/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "down", resp.Checks["redis"])
	})
}
