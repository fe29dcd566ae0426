// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/javajoker/trademark-backend/internal/workflow"
)

var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrMissingMemo          = errors.New("a note is required when moving an application back to an earlier status")
	ErrOverpayment          = errors.New("paid amount exceeds the quoted amount")
	ErrPaymentNotQuoted     = errors.New("payment has no quoted amount")
	ErrPaymentSettled       = errors.New("payment is already settled")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrPaidAmountDecreased  = errors.New("paid amount cannot be lower than the amount already recorded")
	ErrIntentAlreadyApplied = errors.New("payment intent was already applied")
	ErrForbidden            = errors.New("access denied")
	ErrGatewayDisabled      = errors.New("payment gateway is not configured")
	ErrInvalidWebhook       = errors.New("invalid webhook payload")
)

type InvalidTransitionError struct {
	From workflow.Status
	To   workflow.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move application from %s to %s", e.From, e.To)
}

// PaymentIncompleteError lists the stages that must be paid before the
// requested status can be entered.
type PaymentIncompleteError struct {
	Target  workflow.Status
	Missing []workflow.PaymentStage
}

func (e *PaymentIncompleteError) Error() string {
	stages := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		stages[i] = string(s)
	}
	return fmt.Sprintf("cannot enter %s before payment of stage(s) %s", e.Target, strings.Join(stages, ", "))
}

type UnmappedStageError struct {
	Stage workflow.PaymentStage
}

func (e *UnmappedStageError) Error() string {
	return fmt.Sprintf("payment stage %q has no completion transition", e.Stage)
}

type UnsupportedStatusError struct {
	Status string
}

func (e *UnsupportedStatusError) Error() string {
	return fmt.Sprintf("unsupported status %q", e.Status)
}
