package books

import (
	"net/http"

	"github.com/asso-lecture/asso-backend/internal/access"
	httpapi "github.com/asso-lecture/asso-backend/internal/api/http"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func Register(rg *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}

	rg.GET("", access.Require(access.BooksRead), h.list)
	rg.GET("/:id", access.Require(access.BooksRead), h.get)
	rg.POST("", access.Require(access.BooksManage), h.create)
	rg.PUT("/:id", access.Require(access.BooksManage), h.update)
	rg.DELETE("/:id", access.Require(access.BooksManage), h.delete)
}

type bookReq struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Photo  *string `json:"photo"`
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	httpapi.Respond(c, http.StatusOK, items, err)
}

func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, b, err)
}

func (h *Handler) create(c *gin.Context) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	b, err := h.svc.Create(c.Request.Context(), Input(req))
	httpapi.Respond(c, http.StatusCreated, b, err)
}

func (h *Handler) update(c *gin.Context) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	b, err := h.svc.Update(c.Request.Context(), c.Param("id"), Input(req))
	httpapi.Respond(c, http.StatusOK, b, err)
}

func (h *Handler) delete(c *gin.Context) {
	_, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, gin.H{"message": "Book deleted"}, err)
}
