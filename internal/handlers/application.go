// internal/handlers/application.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/trademark-backend/internal/i18n"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

type ApplicationReader interface {
	Get(ctx context.Context, id uuid.UUID, viewer services.Viewer) (*models.Application, error)
	History(ctx context.Context, id uuid.UUID, viewer services.Viewer) ([]models.StatusLogEntry, error)
	List(ctx context.Context, filter repository.ApplicationFilter, params utils.PaginationParams) ([]models.Application, int64, error)
}

// WorkflowRunner commits status changes and schedules their notifications.
type WorkflowRunner interface {
	Submit(ctx context.Context, userID uuid.UUID, req *services.SubmitApplicationRequest) (*models.Application, error)
	Transition(ctx context.Context, applicationID uuid.UUID, target workflow.Status, opts services.TransitionOptions) (*services.TransitionResult, error)
	ConfirmPayment(ctx context.Context, req *services.PaymentConfirmation, actor *uuid.UUID) (*services.PaymentConfirmationResult, error)
}

type Ledger interface {
	Summary(ctx context.Context, applicationID uuid.UUID) (*services.ApplicationPaymentSummary, error)
	RequestPayment(ctx context.Context, req *services.RequestPaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
}

type ApplicationHandler struct {
	apps     ApplicationReader
	workflow WorkflowRunner
	ledger   Ledger
}

func NewApplicationHandler(apps ApplicationReader, workflow WorkflowRunner, ledger Ledger) *ApplicationHandler {
	return &ApplicationHandler{
		apps:     apps,
		workflow: workflow,
		ledger:   ledger,
	}
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required,workflow_status"`
	Note   string `json:"note" validate:"max=2000"`
	Detail string `json:"detail" validate:"max=2000"`
}

// POST /applications
func (h *ApplicationHandler) Submit(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.SubmitApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	app, err := h.workflow.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, app)
}

// GET /applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	app, err := h.apps.Get(c.Request.Context(), id, viewerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": app,
		"metadata":    workflow.Metadata(app.Status),
	})
}

// GET /applications/:id/history
func (h *ApplicationHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.apps.History(c.Request.Context(), id, viewerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, entries)
}

// GET /applications/:id/payments/summary
func (h *ApplicationHandler) PaymentSummary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.apps.Get(ctx, id, viewerFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.ledger.Summary(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, summary)
}

// GET /admin/applications
func (h *ApplicationHandler) AdminList(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.ApplicationFilter{Search: params.Search}

	if raw := c.Query("status"); raw != "" {
		status, err := workflow.ParseStatus(raw)
		if err != nil {
			respondError(c, &services.UnsupportedStatusError{Status: raw})
			return
		}
		filter.Status = status
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "user_id"), nil)
			return
		}
		filter.UserID = &userID
	}

	apps, total, err := h.apps.List(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(apps, total, params))
}

// POST /admin/applications/:id/transition
func (h *ApplicationHandler) Transition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	// workflow_status already validated the value
	target, _ := workflow.ParseStatus(req.Status)
	res, err := h.workflow.Transition(c.Request.Context(), id, target, services.TransitionOptions{
		Note:   req.Note,
		Detail: req.Detail,
		Actor:  actorFrom(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, res)
}

// POST /admin/applications/:id/payments
func (h *ApplicationHandler) RequestPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.RequestPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ApplicationID = id

	ctx := c.Request.Context()
	if _, err := h.apps.Get(ctx, id, viewerFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	payment, err := h.ledger.RequestPayment(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, payment)
}
