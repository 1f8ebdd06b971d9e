package loans

import (
	"net/http"
	"time"

	"github.com/asso-lecture/asso-backend/internal/access"
	httpapi "github.com/asso-lecture/asso-backend/internal/api/http"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func Register(rg *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}

	rg.POST("", access.Require(access.LoansManage), h.create)
	rg.GET("", access.Require(access.LoansRead), h.list)
	rg.GET("/:childId", access.Require(access.LoansRead), h.byChild)
	rg.PUT("/:id", access.Require(access.LoansManage), h.update)
	rg.DELETE("/:id", access.Require(access.LoansManage), h.delete)
}

type createReq struct {
	Book       string    `json:"book"`
	ChildID    string    `json:"childId"`
	LoanDate   time.Time `json:"loanDate"`
	ReturnDate time.Time `json:"returnDate"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}

	l, err := h.svc.Create(c.Request.Context(), CreateInput{
		Book:       req.Book,
		ChildID:    req.ChildID,
		LoanDate:   req.LoanDate,
		ReturnDate: req.ReturnDate,
	})
	httpapi.Respond(c, http.StatusCreated, l, err)
}

// list returns every loan, or with ?childId= the child's loans with their
// books populated.
func (h *Handler) list(c *gin.Context) {
	if childID := c.Query("childId"); childID != "" {
		items, err := h.svc.ListByChild(c.Request.Context(), childID)
		httpapi.Respond(c, http.StatusOK, items, err)
		return
	}
	items, err := h.svc.List(c.Request.Context())
	httpapi.Respond(c, http.StatusOK, items, err)
}

// byChild answers GET /:childId with the child's loans, books populated.
// A child without loans gets an empty list.
func (h *Handler) byChild(c *gin.Context) {
	items, err := h.svc.ListByChild(c.Request.Context(), c.Param("childId"))
	httpapi.Respond(c, http.StatusOK, items, err)
}

type updateReq struct {
	Book       *string    `json:"book"`
	ChildID    *string    `json:"childId"`
	ReturnDate *time.Time `json:"returnDate"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BadRequest(c, "invalid body")
		return
	}

	l, err := h.svc.Update(c.Request.Context(), c.Param("id"), UpdateInput(req))
	httpapi.Respond(c, http.StatusOK, l, err)
}

func (h *Handler) delete(c *gin.Context) {
	_, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	httpapi.Respond(c, http.StatusOK, gin.H{"message": "Book loan deleted"}, err)
}
