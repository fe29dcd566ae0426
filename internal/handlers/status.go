// internal/handlers/status.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/trademark-backend/internal/i18n"
	"github.com/javajoker/trademark-backend/internal/utils"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

// StatusHandler exposes the status registry to portal clients.
type StatusHandler struct{}

func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// GET /statuses
func (h *StatusHandler) List(c *gin.Context) {
	utils.SuccessResponse(c, workflow.AllMetadata())
}

// GET /statuses/:status
func (h *StatusHandler) Get(c *gin.Context) {
	status, err := workflow.ParseStatus(c.Param("status"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyStatusNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"metadata":      workflow.Metadata(status),
		"next_statuses": workflow.NextStatuses(status),
		"payment_gates": workflow.RequiredPaymentStages(status),
		"terminal":      status.IsTerminal(),
	})
}
