package middleware

import (
	"net/http"
	"strings"

	"github.com/asso-lecture/asso-backend/internal/auth"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

// Authenticate validates the bearer token, or the token cookie when no
// Authorization header is sent, and stores the principal in the context.
func Authenticate(v auth.Verifier, cookieName string, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("middleware", "authenticate")
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing authorization token"})
			return
		}

		p, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			log.Debug("token rejected", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		c.Set(auth.CtxPrincipal, p)
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.EqualFold(bearerToken[:7], "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	if cookieName == "" {
		return ""
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}
