// internal/services/workflow_service.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

type Notifier interface {
	Dispatch(ctx context.Context, ev StatusChangeEvent) ([]NotificationResult, error)
}

type PaymentConfirmationResult struct {
	Payment    *models.Payment   `json:"payment"`
	Transition *TransitionResult `json:"transition,omitempty"`
	// Reason the application did not advance although the stage is paid.
	TransitionSkipped string `json:"transition_skipped,omitempty"`
}

// WorkflowService commits status changes and then notifies. Notification
// runs after the commit, detached from the request.
type WorkflowService struct {
	apps        *ApplicationService
	transitions *TransitionService
	ledger      *LedgerService
	notifier    Notifier
	log         logrus.FieldLogger
	budget      time.Duration
	wg          sync.WaitGroup
}

func NewWorkflowService(apps *ApplicationService, transitions *TransitionService, ledger *LedgerService, notifier Notifier, budget time.Duration, log logrus.FieldLogger) *WorkflowService {
	if budget <= 0 {
		budget = 2 * time.Minute
	}
	return &WorkflowService{
		apps:        apps,
		transitions: transitions,
		ledger:      ledger,
		notifier:    notifier,
		log:         log,
		budget:      budget,
	}
}

func (s *WorkflowService) Submit(ctx context.Context, userID uuid.UUID, req *SubmitApplicationRequest) (*models.Application, error) {
	app, entry, err := s.apps.Submit(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, &TransitionResult{Application: app, Entry: entry})
	return app, nil
}

func (s *WorkflowService) Transition(ctx context.Context, applicationID uuid.UUID, target workflow.Status, opts TransitionOptions) (*TransitionResult, error) {
	res, err := s.transitions.RequestTransition(ctx, applicationID, target, opts)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, res)
	return res, nil
}

// ConfirmPayment records the payment and, once the stage is fully paid,
// advances the application. A transition the workflow refuses leaves the
// payment recorded and is reported in TransitionSkipped. Confirming a stage
// that is already paid retries a status change that failed to commit.
func (s *WorkflowService) ConfirmPayment(ctx context.Context, req *PaymentConfirmation, actor *uuid.UUID) (*PaymentConfirmationResult, error) {
	payment, err := s.ledger.RecordPaymentConfirmation(ctx, req)
	if errors.Is(err, ErrPaymentSettled) {
		result, resumeErr := s.ResumePaymentTransition(ctx, req.PaymentID, actor)
		if resumeErr != nil {
			return nil, resumeErr
		}
		if result.Transition == nil && result.TransitionSkipped == "" {
			return nil, err
		}
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result := &PaymentConfirmationResult{Payment: payment}
	if payment.Status != models.PaymentStatusPaid {
		return result, nil
	}

	res, err := s.transitions.AutoTransitionOnPaymentComplete(ctx, payment.ApplicationID, payment.Stage, actor)
	return s.completeTransition(ctx, result, res, err)
}

// ResumePaymentTransition moves the application of a paid stage to the
// stage's completion status when an earlier attempt did not commit. The
// result carries no transition when there is nothing left to do.
func (s *WorkflowService) ResumePaymentTransition(ctx context.Context, paymentID uuid.UUID, actor *uuid.UUID) (*PaymentConfirmationResult, error) {
	payment, err := s.ledger.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	result := &PaymentConfirmationResult{Payment: payment}
	if payment.Status != models.PaymentStatusPaid {
		return result, nil
	}

	res, err := s.transitions.ResumePaymentTransition(ctx, payment.ApplicationID, payment.Stage, actor)
	if err == nil && res != nil {
		s.log.WithFields(logrus.Fields{
			"application_id": payment.ApplicationID,
			"stage":          payment.Stage,
		}).Info("Resumed status change for paid stage")
	}
	return s.completeTransition(ctx, result, res, err)
}

func (s *WorkflowService) completeTransition(ctx context.Context, result *PaymentConfirmationResult, res *TransitionResult, err error) (*PaymentConfirmationResult, error) {
	if err != nil {
		var invalid *InvalidTransitionError
		var incomplete *PaymentIncompleteError
		if errors.As(err, &invalid) || errors.As(err, &incomplete) {
			s.log.WithError(err).WithFields(logrus.Fields{
				"application_id": result.Payment.ApplicationID,
				"stage":          result.Payment.Stage,
			}).Warn("Payment recorded without status change")
			result.TransitionSkipped = err.Error()
			return result, nil
		}
		return result, err
	}
	if res == nil {
		return result, nil
	}

	result.Transition = res
	s.notify(ctx, res)
	return result, nil
}

func (s *WorkflowService) notify(ctx context.Context, res *TransitionResult) {
	if s.notifier == nil || res == nil {
		return
	}
	ev := EventFromTransition(res)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.budget)
		defer cancel()

		results, err := s.notifier.Dispatch(dispatchCtx, ev)
		logger := s.log.WithFields(logrus.Fields{
			"application_id": ev.ApplicationID,
			"status":         ev.ToStatus,
		})
		if err != nil {
			logger.WithError(err).Error("Notification dispatch failed")
			return
		}
		if !DispatchSucceeded(results) {
			logger.Warn("No notification channel succeeded")
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (s *WorkflowService) Wait() {
	s.wg.Wait()
}
