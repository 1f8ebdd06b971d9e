package users

import (
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

	rg.GET("", access.Require(access.UsersRead), h.list)
	rg.GET("/:id", access.Require(access.UsersRead), h.get)
	rg.POST("", access.Require(access.UsersManage), h.create)
	rg.PUT("/:id", access.Require(access.UsersManage), h.update)
	rg.DELETE("/:id", access.Require(access.UsersManage), h.delete)
}

type createReq struct {
	Nom    string      `json:"nom"`
	Prenom string      `json:"prenom"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Projet string      `json:"projet"`
}

type updateReq struct {
	Nom    *string               `json:"nom"`
	Prenom *string               `json:"prenom"`
	Email  *string               `json:"email"`
	Role   *domain.Role          `json:"role"`
	Projet domain.NullableString `json:"projet"`
}

// list accepts ?projet= to list the users of one project.
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("projet"))
	httpapi.Respond(c, http.StatusOK, items, err)
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, u, err)
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	u, err := h.svc.Create(c.Request.Context(), CreateInput(req))
	httpapi.Respond(c, http.StatusCreated, u, err)
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	u, err := h.svc.Update(c.Request.Context(), c.Param("id"), UpdateInput(req))
	httpapi.Respond(c, http.StatusOK, u, err)
}

func (h *Handler) delete(c *gin.Context) {
	_, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, gin.H{"message": "User deleted"}, err)
}

type RequestHandler struct {
	svc *RequestService
}

// RegisterRequests mounts the access-request routes. public must not require
// authentication; the review routes go on the authenticated users group.
func RegisterRequests(public, protected *gin.RouterGroup, svc *RequestService) {
	h := &RequestHandler{svc: svc}

	public.POST("/request-access", h.submit)

	protected.GET("/requests", access.Require(access.RequestsReview), h.list)
	protected.POST("/requests/:id/approve", access.Require(access.RequestsReview), h.approve)
	protected.POST("/requests/:id/reject", access.Require(access.RequestsReview), h.reject)
}

// submitReq also receives the password typed in the sign-up form. It is not
// bound: credentials belong to the auth provider.
type submitReq struct {
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
	Email  string `json:"email"`
	Note   string `json:"note"`
}

func (h *RequestHandler) submit(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}
	r, err := h.svc.Submit(c.Request.Context(), RequestInput(req))
	httpapi.Respond(c, http.StatusCreated, r, err)
}

// list accepts ?status=pending|approved|rejected.
func (h *RequestHandler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), domain.RequestStatus(c.Query("status")))
	httpapi.Respond(c, http.StatusOK, items, err)
}

type approveReq struct {
	Role   domain.Role `json:"role"`
	Projet string      `json:"projet"`
}

type approveResp struct {
	Request *domain.AccessRequest `json:"request"`
	User    *domain.User          `json:"user"`
}

func (h *RequestHandler) approve(c *gin.Context) {
	var req approveReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpapi.BadRequest(c, "invalid body")
			return
		}
	}
	r, u, err := h.svc.Approve(c.Request.Context(), c.Param("id"), ApproveInput(req))
	httpapi.Respond(c, http.StatusCreated, approveResp{Request: r, User: u}, err)
}

func (h *RequestHandler) reject(c *gin.Context) {
	r, err := h.svc.Reject(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, r, err)
}
