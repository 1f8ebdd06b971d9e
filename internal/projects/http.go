package projects

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/asso-lecture/asso-backend/internal/access"
	httpapi "github.com/asso-lecture/asso-backend/internal/api/http"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func Register(rg *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}
	read := access.Require(access.ProjectsRead)
	manage := access.Require(access.ProjectsManage)

	rg.GET("", read, h.list)
	rg.GET("/:id", read, h.get)
	rg.POST("", manage, h.create)
	rg.PUT("/:id", manage, h.update)
	rg.DELETE("/:id", manage, h.delete)

	rg.GET("/:id/books", read, h.books)
	rg.POST("/:id/books", manage, h.addBooks)
	rg.DELETE("/:id/books", manage, h.removeBooks)

	rg.GET("/:id/children", read, h.children)
	rg.POST("/:id/children", manage, h.addChildren)
	rg.DELETE("/:id/children", manage, h.removeChildren)

	rg.GET("/:id/users", read, h.users)
}

type createReq struct {
	Nom         string   `json:"nom"`
	Annee       int      `json:"annee"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Animateurs  []string `json:"animateurs"`
	Books       []string `json:"books"`
	Children    []string `json:"children"`
	Projet      string   `json:"projet"`
}

type updateReq struct {
	Nom         *string               `json:"nom"`
	Annee       *int                  `json:"annee"`
	Description *string               `json:"description"`
	Image       domain.NullableString `json:"image"`
	Animateurs  *[]string             `json:"animateurs"`
	Books       *[]string             `json:"books"`
	Children    *[]string             `json:"children"`
	Projet      domain.NullableString `json:"projet"`
}

// list accepts ?animateur=, ?book= and ?child= to find the projects holding
// a given member.
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), Filter{
		AnimateurID: c.Query("animateur"),
		BookID:      c.Query("book"),
		ChildID:     c.Query("child"),
	})
	httpapi.Respond(c, http.StatusOK, items, err)
}

func (h *Handler) get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, v, err)
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	p, err := h.svc.Create(c.Request.Context(), CreateInput(req))
	httpapi.Respond(c, http.StatusCreated, p, err)
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), UpdateInput(req))
	httpapi.Respond(c, http.StatusOK, p, err)
}

func (h *Handler) delete(c *gin.Context) {
	_, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, gin.H{"message": "Project deleted"}, err)
}

func (h *Handler) books(c *gin.Context) {
	items, err := h.svc.Books(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, items, err)
}

func (h *Handler) children(c *gin.Context) {
	items, err := h.svc.Children(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, items, err)
}

func (h *Handler) users(c *gin.Context) {
	items, err := h.svc.Users(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, items, err)
}

func (h *Handler) addBooks(c *gin.Context) {
	h.mutateSet(c, "bookIds", "Book IDs are required", h.svc.AddBooks)
}

func (h *Handler) removeBooks(c *gin.Context) {
	h.mutateSet(c, "bookIds", "Book IDs are required", h.svc.RemoveBooks)
}

func (h *Handler) addChildren(c *gin.Context) {
	h.mutateSet(c, "childIds", "Child IDs are required", h.svc.AddChildren)
}

func (h *Handler) removeChildren(c *gin.Context) {
	h.mutateSet(c, "childIds", "Child IDs are required", h.svc.RemoveChildren)
}

func (h *Handler) mutateSet(c *gin.Context, key, missing string, fn func(context.Context, string, []string) (*domain.Project, error)) {
	ids, ok := idList(c, key)
	if !ok {
		httpapi.BadRequest(c, missing)
		return
	}
	p, err := fn(c.Request.Context(), c.Param("id"), ids)
	httpapi.Respond(c, http.StatusOK, p, err)
}

// idList extracts body[key] and requires it to be a JSON array of strings.
func idList(c *gin.Context, key string) ([]string, bool) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, false
	}
	raw, ok := body[key]
	if !ok || len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false
	}
	return ids, true
}
