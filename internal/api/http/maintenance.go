package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/asso-lecture/asso-backend/internal/access"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/gin-gonic/gin"
)

const defaultInconsistencyLimit = 50

// Repairer runs one read-repair pass.
type Repairer interface {
	Run(ctx context.Context) (consistency.RepairReport, error)
}

type MaintenanceHandler struct {
	repairer Repairer
	reporter consistency.Reporter
}

func NewMaintenanceHandler(rp Repairer, rep consistency.Reporter) *MaintenanceHandler {
	return &MaintenanceHandler{repairer: rp, reporter: rep}
}

func (h *MaintenanceHandler) Register(rg *gin.RouterGroup) {
	rg.Use(access.Require(access.MaintenanceRun))
	rg.POST("/repair", h.repair)
	rg.GET("/inconsistencies", h.inconsistencies)
}

// repair answers 200 with the report even when some writes failed; the
// failures are listed in report.errors.
func (h *MaintenanceHandler) repair(c *gin.Context) {
	report, err := h.repairer.Run(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, report)
}

func (h *MaintenanceHandler) inconsistencies(c *gin.Context) {
	limit := defaultInconsistencyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := h.reporter.Recent(c.Request.Context(), limit)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
