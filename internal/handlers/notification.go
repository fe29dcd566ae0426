// internal/handlers/notification.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/trademark-backend/internal/i18n"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
)

type NotificationHandler struct {
	dispatcher services.Notifier
}

func NewNotificationHandler(dispatcher services.Notifier) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// POST /admin/notifications/dispatch
//
// Re-sends the notifications for a status change. Answers 500 with the
// per-channel results when no customer channel succeeded.
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	var req services.StatusChangeEvent
	if !bindJSON(c, &req) {
		return
	}

	results, err := h.dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if !services.DispatchSucceeded(results) {
		utils.ErrorResponse(c, http.StatusInternalServerError, "NOTIFICATION_FAILED",
			i18n.T(utils.GetLangFromContext(c), i18n.KeyDispatchFailed), results)
		return
	}

	utils.SuccessResponse(c, gin.H{"success": true, "results": results})
}
