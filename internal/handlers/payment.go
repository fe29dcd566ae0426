// internal/handlers/payment.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/trademark-backend/internal/i18n"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
)

// Stripe documents event payloads well below this.
const maxWebhookBody = 64 << 10

type PaymentGateway interface {
	CreateStageIntent(ctx context.Context, paymentID uuid.UUID, requester *models.User) (*services.PaymentIntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*services.PaymentConfirmationResult, error)
}

type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type PaymentHandler struct {
	gateway  PaymentGateway
	ledger   Ledger
	apps     ApplicationReader
	users    UserLookup
	workflow WorkflowRunner
}

func NewPaymentHandler(gateway PaymentGateway, ledger Ledger, apps ApplicationReader, users UserLookup, workflow WorkflowRunner) *PaymentHandler {
	return &PaymentHandler{
		gateway:  gateway,
		ledger:   ledger,
		apps:     apps,
		users:    users,
		workflow: workflow,
	}
}

// POST /payments/:id/intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	paymentID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	ctx := c.Request.Context()
	payment, err := h.ledger.GetPayment(ctx, paymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := h.apps.Get(ctx, payment.ApplicationID, viewerFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	requester, err := h.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		requester = nil
	} else if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.gateway.CreateStageIntent(ctx, paymentID, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, resp)
}

// POST /payments/stripe/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "BAD_REQUEST",
			i18n.T(utils.GetLangFromContext(c), i18n.KeyWebhookInvalid), nil)
		return
	}

	res, err := h.gateway.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"received": true, "handled": res != nil})
}

// POST /admin/payments/:id/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	paymentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.PaymentConfirmation
	if !bindJSON(c, &req) {
		return
	}
	req.PaymentID = paymentID

	res, err := h.workflow.ConfirmPayment(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, res)
}
