package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asso-lecture/asso-backend/internal/auth"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, mem *memory.Store, role domain.Role) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/users", func(c *gin.Context) {
		c.Set(auth.CtxPrincipal, auth.Principal{UserID: "caller", Role: role})
	})
	Register(g, NewService(mem.Storage(), consistency.New(mem.Storage()), nil))
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeUser(t *testing.T, w *httptest.ResponseRecorder) domain.User {
	t.Helper()
	var u domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	return u
}

func TestHandler_Create(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.CreateProject(ctx, &domain.Project{ID: "P1"}))
	r := setupRouter(t, mem, domain.RoleAdmin)

	w := do(r, http.MethodPost, "/api/users", gin.H{"nom": "Dupont", "prenom": "Anne", "email": " Anne@Example.org ", "projet": "P1"})
	require.Equal(t, http.StatusCreated, w.Code)
	u := decodeUser(t, w)
	assert.Equal(t, "anne@example.org", u.Email)
	assert.Equal(t, domain.RoleSimple, u.Role)
	assert.Equal(t, "P1", domain.StrVal(u.Projet))

	p, err := mem.GetProject(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, p.Animateurs, "the project lists its new animateur")

	tests := []struct {
		name string
		body gin.H
	}{
		{"duplicate email", gin.H{"email": "anne@example.org"}},
		{"missing email", gin.H{"nom": "X"}},
		{"bad email", gin.H{"email": "not-an-email"}},
		{"unknown role", gin.H{"email": "b@example.org", "role": "root"}},
		{"unknown project", gin.H{"email": "c@example.org", "projet": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_UpdateProjet(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.CreateProject(ctx, &domain.Project{ID: "P1", Animateurs: []string{"u1"}}))
	require.NoError(t, mem.CreateProject(ctx, &domain.Project{ID: "P2"}))
	require.NoError(t, mem.CreateUser(ctx, &domain.User{ID: "u1", Email: "u1@example.org", Role: domain.RoleSimple, Projet: domain.StrPtr("P1")}))
	r := setupRouter(t, mem, domain.RoleAdmin)

	animateurs := func(id string) []string {
		p, err := mem.GetProject(ctx, id)
		require.NoError(t, err)
		return p.Animateurs
	}

	t.Run("move to another project", func(t *testing.T) {
		w := do(r, http.MethodPut, "/api/users/u1", gin.H{"projet": "P2", "role": "referent"})
		require.Equal(t, http.StatusOK, w.Code)
		u := decodeUser(t, w)
		assert.Equal(t, "P2", domain.StrVal(u.Projet))
		assert.Equal(t, domain.RoleReferent, u.Role)
		assert.Empty(t, animateurs("P1"))
		assert.Equal(t, []string{"u1"}, animateurs("P2"))
	})

	t.Run("absent projet is left alone", func(t *testing.T) {
		w := do(r, http.MethodPut, "/api/users/u1", gin.H{"nom": "Martin"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "P2", domain.StrVal(decodeUser(t, w).Projet))
	})

	t.Run("null projet detaches", func(t *testing.T) {
		w := do(r, http.MethodPut, "/api/users/u1", gin.H{"projet": nil})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decodeUser(t, w).Projet)
		assert.Empty(t, animateurs("P2"))
	})

	t.Run("unknown project", func(t *testing.T) {
		w := do(r, http.MethodPut, "/api/users/u1", gin.H{"projet": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing user", func(t *testing.T) {
		w := do(r, http.MethodPut, "/api/users/ghost", gin.H{"nom": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_Delete(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.CreateProject(ctx, &domain.Project{ID: "P1", Animateurs: []string{"u1", "u2"}}))
	require.NoError(t, mem.CreateUser(ctx, &domain.User{ID: "u1", Email: "u1@example.org", Projet: domain.StrPtr("P1")}))
	r := setupRouter(t, mem, domain.RoleAdmin)

	w := do(r, http.MethodDelete, "/api/users/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	p, err := mem.GetProject(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, p.Animateurs)
}

func TestHandler_OnlyAdmins(t *testing.T) {
	mem := memory.New()
	for _, role := range []domain.Role{domain.RoleReferent, domain.RoleSimple} {
		r := setupRouter(t, mem, role)
		assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/users", nil).Code)
		assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/users", gin.H{"email": "a@example.org"}).Code)
	}
}
