package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asso-lecture/asso-backend/internal/auth"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepairer struct {
	report consistency.RepairReport
	err    error
	calls  int
}

func (s *stubRepairer) Run(context.Context) (consistency.RepairReport, error) {
	s.calls++
	return s.report, s.err
}

func setupMaintenance(t *testing.T, role domain.Role, rp Repairer, rep consistency.Reporter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/maintenance", func(c *gin.Context) {
		c.Set(auth.CtxPrincipal, auth.Principal{UserID: "u", Role: role})
	})
	NewMaintenanceHandler(rp, rep).Register(g)
	return r
}

func TestMaintenanceHandler_Repair(t *testing.T) {
	rp := &stubRepairer{report: consistency.RepairReport{ChildrenCleared: 2, Conflicts: []consistency.UserConflict{}}}

	t.Run("admin runs repair", func(t *testing.T) {
		r := setupMaintenance(t, domain.RoleAdmin, rp, consistency.NewMemoryReporter(10))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/maintenance/repair", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var got consistency.RepairReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 2, got.ChildrenCleared)
		assert.Equal(t, 1, rp.calls)
	})

	t.Run("partial failure still returns the report", func(t *testing.T) {
		failing := &stubRepairer{err: errors.New("child c1: timeout"), report: consistency.RepairReport{Errors: []string{"child c1: timeout"}}}
		r := setupMaintenance(t, domain.RoleAdmin, failing, consistency.NewMemoryReporter(10))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/maintenance/repair", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "child c1: timeout")
	})

	t.Run("referent is denied", func(t *testing.T) {
		r := setupMaintenance(t, domain.RoleReferent, rp, consistency.NewMemoryReporter(10))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/maintenance/repair", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMaintenanceHandler_Inconsistencies(t *testing.T) {
	rep := consistency.NewMemoryReporter(10)
	ctx := context.Background()
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, rep.Report(ctx, consistency.Inconsistency{Op: consistency.OpBookLoanCreated, EntityID: id}))
	}
	r := setupMaintenance(t, domain.RoleAdmin, &stubRepairer{}, rep)

	tests := []struct {
		query  string
		status int
		count  int
	}{
		{"", http.StatusOK, 3},
		{"?limit=2", http.StatusOK, 2},
		{"?limit=0", http.StatusOK, 3},
		{"?limit=abc", http.StatusBadRequest, 0},
		{"?limit=-1", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run("limit"+tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/maintenance/inconsistencies"+tt.query, nil))
			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				return
			}
			var got []consistency.Inconsistency
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Len(t, got, tt.count)
			assert.Equal(t, "c3", got[0].EntityID)
		})
	}
}
