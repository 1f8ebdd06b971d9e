package auth

import (
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	CtxPrincipal = "principal"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   domain.Role
}

// PrincipalFrom extracts the principal set by the authentication middleware.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
