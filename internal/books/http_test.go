package books

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	httpapi "github.com/asso-lecture/asso-backend/internal/api/http"
	"github.com/asso-lecture/asso-backend/internal/auth"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/asso-lecture/asso-backend/internal/storage/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, st storage.Store, role domain.Role) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/books", func(c *gin.Context) {
		c.Set(auth.CtxPrincipal, auth.Principal{UserID: "staff", Role: role})
	})
	Register(g, NewService(st, consistency.New(st), nil))
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

func TestHandler_CRUD(t *testing.T) {
	mem := memory.New()
	r := setupRouter(t, mem.Storage(), domain.RoleReferent)

	w := do(r, http.MethodPost, "/api/books", gin.H{"title": "Le Petit Prince", "author": "Saint-Exupery"})
	require.Equal(t, http.StatusCreated, w.Code)
	var b domain.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.NotEmpty(t, b.ID)

	w = do(r, http.MethodPut, "/api/books/"+b.ID, gin.H{"photo": "/uploads/pp.jpg"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, "Le Petit Prince", b.Title)
	assert.Equal(t, "/uploads/pp.jpg", b.Photo)

	w = do(r, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []domain.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	w = do(r, http.MethodPost, "/api/books", gin.H{"author": "anonymous"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/books/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_SimpleCannotManage(t *testing.T) {
	r := setupRouter(t, memory.New().Storage(), domain.RoleSimple)

	w := do(r, http.MethodPost, "/api/books", gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/api/books", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

type failingPull struct {
	storage.ProjectStore
}

func (failingPull) PullReference(context.Context, domain.RefField, string, string) (int64, error) {
	return 0, errors.New("write timeout")
}

func TestHandler_Delete(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.CreateBook(ctx, &domain.Book{ID: "b1", Title: "A"}))
	require.NoError(t, mem.CreateBook(ctx, &domain.Book{ID: "b2", Title: "B"}))
	require.NoError(t, mem.CreateProject(ctx, &domain.Project{ID: "P1", Books: []string{"b1", "b2"}}))

	t.Run("book leaves every project", func(t *testing.T) {
		r := setupRouter(t, mem.Storage(), domain.RoleAdmin)
		w := do(r, http.MethodDelete, "/api/books/b1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		p, err := mem.GetProject(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, []string{"b2"}, p.Books)
	})

	t.Run("failed cleanup is a warning", func(t *testing.T) {
		st := mem.Storage()
		st.Projects = failingPull{ProjectStore: st.Projects}
		r := setupRouter(t, st, domain.RoleAdmin)

		w := do(r, http.MethodDelete, "/api/books/b2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(httpapi.ConsistencyWarningHeader))

		_, err := mem.GetBook(ctx, "b2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
