// internal/handlers/admin.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/utils"
)

type DashboardProvider interface {
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

type OverdueReconciler interface {
	ReconcileOverdue(ctx context.Context) (int64, error)
}

type AdminHandler struct {
	stats   DashboardProvider
	overdue OverdueReconciler
}

func NewAdminHandler(stats DashboardProvider, overdue OverdueReconciler) *AdminHandler {
	return &AdminHandler{
		stats:   stats,
		overdue: overdue,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.stats.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// POST /admin/payments/reconcile-overdue
func (h *AdminHandler) ReconcileOverdue(c *gin.Context) {
	marked, err := h.overdue.ReconcileOverdue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"marked_overdue": marked})
}
