package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asso-lecture/asso-backend/internal/metrics"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/platform/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(logger.Nop()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, requestid.From(c.Request.Context()))
	})

	t.Run("echoes the incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})

	t.Run("generates one when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		rid := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, rid)
		assert.Equal(t, rid, w.Body.String())
	})
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(RateLimit(1, 2, m))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2"), "buckets are per client")

	n, err := testutil.GatherAndCount(m.Registry(), "asso_api_rate_limited_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRateLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(0, 0, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestIPLimiter_SweepsIdleVisitors(t *testing.T) {
	l := newIPLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	require.True(t, l.allow("a"))
	now = now.Add(visitorIdle + 2*time.Minute)
	require.True(t, l.allow("b"))

	_, ok := l.visitors["a"]
	assert.False(t, ok)
	assert.Len(t, l.visitors, 1)
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/books/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"b1", "b2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/"+id, nil))
	}

	n, err := testutil.GatherAndCount(m.Registry(), "asso_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "ids share one route series")
}
