// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/trademark-backend/internal/i18n"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
)

// respondError maps service and repository error kinds onto the API
// envelope. Anything unrecognised is a 500 and is attached to the context
// for the request logger.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var (
		invalidTransition *services.InvalidTransitionError
		paymentIncomplete *services.PaymentIncompleteError
		unmappedStage     *services.UnmappedStageError
		unsupportedStatus *services.UnsupportedStatusError
	)

	switch {
	case errors.Is(err, services.ErrApplicationNotFound):
		utils.NotFoundResponse(c, i18n.KeyApplicationNotFound)
	case errors.Is(err, services.ErrPaymentNotFound):
		utils.NotFoundResponse(c, i18n.KeyPaymentNotFound)
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.As(err, &invalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_TRANSITION",
			i18n.T(lang, i18n.KeyInvalidTransition, invalidTransition.From, invalidTransition.To),
			gin.H{"from": invalidTransition.From, "to": invalidTransition.To})
	case errors.As(err, &paymentIncomplete):
		utils.ErrorResponse(c, http.StatusConflict, "PAYMENT_INCOMPLETE",
			i18n.T(lang, i18n.KeyPaymentIncomplete, joinStages(paymentIncomplete)),
			gin.H{"missing_stages": paymentIncomplete.Missing})
	case errors.Is(err, services.ErrMissingMemo):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "MISSING_MEMO", i18n.T(lang, i18n.KeyMissingMemo), nil)
	case errors.As(err, &unmappedStage):
		c.Error(err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "UNMAPPED_STAGE", i18n.T(lang, i18n.KeyUnmappedStage),
			gin.H{"stage": unmappedStage.Stage})
	case errors.As(err, &unsupportedStatus):
		utils.ErrorResponse(c, http.StatusBadRequest, "UNSUPPORTED_STATUS", i18n.T(lang, i18n.KeyUnsupportedStatus),
			gin.H{"status": unsupportedStatus.Status})
	case errors.Is(err, repository.ErrConcurrentUpdate):
		utils.ErrorResponse(c, http.StatusConflict, "CONFLICT", i18n.T(lang, i18n.KeyConcurrentUpdate), nil)
	case errors.Is(err, repository.ErrPaymentStageExists):
		utils.ErrorResponse(c, http.StatusConflict, "CONFLICT", i18n.T(lang, i18n.KeyPaymentStageExists), nil)
	case errors.Is(err, services.ErrPaymentSettled):
		utils.ErrorResponse(c, http.StatusConflict, "PAYMENT_SETTLED", i18n.T(lang, i18n.KeyPaymentSettled), nil)
	case errors.Is(err, services.ErrPaymentNotQuoted):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "PAYMENT_NOT_QUOTED", i18n.T(lang, i18n.KeyPaymentNotQuoted), nil)
	case errors.Is(err, services.ErrOverpayment):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "OVERPAYMENT", i18n.T(lang, i18n.KeyPaymentOverpaid), err.Error())
	case errors.Is(err, services.ErrPaidAmountDecreased):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "PAID_AMOUNT_DECREASED", i18n.T(lang, i18n.KeyPaymentInvalid), nil)
	case errors.Is(err, services.ErrIntentAlreadyApplied):
		utils.ErrorResponse(c, http.StatusConflict, "CONFLICT", i18n.T(lang, i18n.KeyPaymentSettled), nil)
	case errors.Is(err, services.ErrInvalidAmount):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "INVALID_AMOUNT", i18n.T(lang, i18n.KeyPaymentInvalid), nil)
	case errors.Is(err, services.ErrGatewayDisabled):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "GATEWAY_DISABLED", i18n.T(lang, i18n.KeyGatewayDisabled), nil)
	case errors.Is(err, services.ErrInvalidWebhook):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_WEBHOOK", i18n.T(lang, i18n.KeyWebhookInvalid), nil)
	default:
		c.Error(err)
		utils.InternalErrorResponse(c)
	}
}

func joinStages(err *services.PaymentIncompleteError) string {
	stages := make([]string, len(err.Missing))
	for i, s := range err.Missing {
		stages[i] = string(s)
	}
	return strings.Join(stages, ", ")
}

// parseID reads a uuid path parameter, answering 400 when it is malformed.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds and validates a request body, writing the error response
// itself when either step fails.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func viewerFrom(c *gin.Context) services.Viewer {
	userID, _ := utils.GetUserIDFromContext(c)
	return services.Viewer{UserID: userID, Admin: utils.IsAdmin(c)}
}

func actorFrom(c *gin.Context) *uuid.UUID {
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		return &userID
	}
	return nil
}
