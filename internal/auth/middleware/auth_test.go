package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asso-lecture/asso-backend/internal/auth"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(v auth.Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Authenticate(v, "accessToken", nil), func(c *gin.Context) {
		p, _ := auth.PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": p.UserID, "role": p.Role})
	})
	return r
}

// TestAuthenticate tests token extraction from the header and the cookie
func TestAuthenticate(t *testing.T) {
	v := auth.NewJWTVerifier("secret")
	token, err := v.Issue("u1", "", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)
	r := setupRouter(v)

	tests := []struct {
		name   string
		setup  func(req *http.Request)
		status int
	}{
		{"bearer header", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"lowercase scheme", func(req *http.Request) { req.Header.Set("Authorization", "bearer "+token) }, http.StatusOK},
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "accessToken", Value: token}) }, http.StatusOK},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"invalid", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"other cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "session", Value: token}) }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"id":"u1","role":"admin"}`, w.Body.String())
			}
		})
	}
}
