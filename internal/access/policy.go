// Package access decides which role may perform which operation.
package access

import (
	"fmt"
	"net/http"

	"github.com/asso-lecture/asso-backend/internal/auth"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

type Operation string

const (
	UsersRead      Operation = "users:read"
	UsersManage    Operation = "users:manage"
	ProjectsRead   Operation = "projects:read"
	ProjectsManage Operation = "projects:manage"
	ChildrenRead   Operation = "children:read"
	ChildrenManage Operation = "children:manage"
	LoansRead      Operation = "loans:read"
	LoansManage    Operation = "loans:manage"
	BooksRead      Operation = "books:read"
	BooksManage    Operation = "books:manage"
	MaintenanceRun Operation = "maintenance:run"

	RequestsReview Operation = "access-requests:review"
)

var everyone = []domain.Role{domain.RoleAdmin, domain.RoleReferent, domain.RoleSimple}

var policy = map[Operation][]domain.Role{
	UsersRead:      {domain.RoleAdmin},
	UsersManage:    {domain.RoleAdmin},
	ProjectsRead:   everyone,
	ProjectsManage: {domain.RoleAdmin},
	ChildrenRead:   everyone,
	ChildrenManage: everyone,
	LoansRead:      everyone,
	LoansManage:    everyone,
	BooksRead:      everyone,
	BooksManage:    {domain.RoleAdmin, domain.RoleReferent},
	MaintenanceRun: {domain.RoleAdmin},
	RequestsReview: {domain.RoleAdmin},
}

// Authorize returns nil when role may perform op. Unknown roles and
// operations are denied.
func Authorize(role domain.Role, op Operation) error {
	for _, r := range policy[op] {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("role %q may not %s: %w", role, op, domain.ErrPermissionDenied)
}

// Require aborts with 403 unless the authenticated principal may perform op.
// It must run after the authentication middleware.
func Require(op Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}
		if err := Authorize(p.Role, op); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied"})
			return
		}
		c.Next()
	}
}
