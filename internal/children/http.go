package children

import (
	"net/http"
	"strconv"

	"github.com/asso-lecture/asso-backend/internal/access"
	httpapi "github.com/asso-lecture/asso-backend/internal/api/http"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func Register(rg *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}

	rg.GET("", access.Require(access.ChildrenRead), h.list)
	rg.GET("/:id", access.Require(access.ChildrenRead), h.get)
	rg.POST("", access.Require(access.ChildrenManage), h.create)
	rg.PUT("/:id", access.Require(access.ChildrenManage), h.update)
	rg.DELETE("/:id", access.Require(access.ChildrenManage), h.delete)
}

type childReq struct {
	Nom             *string `json:"nom"`
	Prenom          *string `json:"prenom"`
	DateNaissance   *string `json:"dateNaissance"`
	ClasseSuivie    *string `json:"classeSuivie"`
	NoteObservation *string `json:"noteObservation"`
	Photo           *string `json:"photo"`
	Status          *string `json:"status"`
	ParentID        *string `json:"parentId"`
}

func (h *Handler) list(c *gin.Context) {
	var hasLoan *bool
	if raw := c.Query("hasLoan"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpapi.BadRequest(c, "hasLoan must be true or false")
			return
		}
		hasLoan = &v
	}
	items, err := h.svc.List(c.Request.Context(), hasLoan)
	httpapi.Respond(c, http.StatusOK, items, err)
}

func (h *Handler) get(c *gin.Context) {
	child, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, child, err)
}

func (h *Handler) create(c *gin.Context) {
	var req childReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	child, err := h.svc.Create(c.Request.Context(), Input(req))
	httpapi.Respond(c, http.StatusCreated, child, err)
}

func (h *Handler) update(c *gin.Context) {
	var req childReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	child, err := h.svc.Update(c.Request.Context(), c.Param("id"), Input(req))
	httpapi.Respond(c, http.StatusOK, child, err)
}

func (h *Handler) delete(c *gin.Context) {
	_, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, gin.H{"message": "Child profile deleted"}, err)
}
