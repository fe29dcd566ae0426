// internal/services/transition.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trademark-backend/internal/metrics"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

// ApplicationStore is the only write path for application status.
type ApplicationStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ApplyTransition(ctx context.Context, app *models.Application, change repository.StatusChange) error
}

// StageChecker answers whether a payment stage is settled.
type StageChecker interface {
	IsStageCompleted(ctx context.Context, applicationID uuid.UUID, stage workflow.PaymentStage) (bool, error)
}

type TransitionOptions struct {
	Note string
	// Detail overrides the status_detail text; defaults to the status description.
	Detail string
	Actor  *uuid.UUID
	// Metadata is merged into the log entry; the automated and trigger keys
	// are always set by the executor.
	Metadata models.JSONB

	trigger string
	// pending makes the call a no-op when the application already sits at
	// target or can no longer move there.
	pending bool
}

// TransitionResult is a committed status change.
type TransitionResult struct {
	Application *models.Application    `json:"application"`
	Entry       *models.StatusLogEntry `json:"entry"`
}

type TransitionService struct {
	apps     ApplicationStore
	payments StageChecker
	locker   ApplicationLocker
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewTransitionService(apps ApplicationStore, payments StageChecker, locker ApplicationLocker, log logrus.FieldLogger) *TransitionService {
	return &TransitionService{
		apps:     apps,
		payments: payments,
		locker:   locker,
		log:      log,
		now:      time.Now,
	}
}

// RequestTransition validates and commits a move of the application to
// target. It never notifies anyone; callers dispatch after it returns.
func (s *TransitionService) RequestTransition(ctx context.Context, applicationID uuid.UUID, target workflow.Status, opts TransitionOptions) (*TransitionResult, error) {
	if !target.Valid() {
		return nil, &UnsupportedStatusError{Status: string(target)}
	}

	unlock, err := s.locker.Lock(ctx, applicationID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.apps.Get(ctx, applicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}

	current := app.Status
	if opts.pending && (current == target || !workflow.CanTransition(current, target)) {
		return nil, nil
	}
	if !workflow.CanTransition(current, target) {
		metrics.TransitionRejections.WithLabelValues("invalid_transition").Inc()
		return nil, &InvalidTransitionError{From: current, To: target}
	}

	missing, err := s.missingPayments(ctx, app.ID, target)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		metrics.TransitionRejections.WithLabelValues("payment_incomplete").Inc()
		return nil, &PaymentIncompleteError{Target: target, Missing: missing}
	}

	note := strings.TrimSpace(opts.Note)
	if workflow.IsRollback(current, target) && note == "" {
		metrics.TransitionRejections.WithLabelValues("missing_memo").Inc()
		return nil, ErrMissingMemo
	}

	detail := opts.Detail
	if detail == "" {
		detail = workflow.Metadata(target).Description
	}

	// changed_at must sort after the previous entry even if clocks drift
	changedAt := s.now().UTC()
	if !changedAt.After(app.StatusUpdatedAt) {
		changedAt = app.StatusUpdatedAt.Add(time.Microsecond)
	}

	metadata := models.JSONB{}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	metadata[models.MetaAutomated] = opts.trigger != ""
	metadata[models.MetaTrigger] = models.TriggerManual
	if opts.trigger != "" {
		metadata[models.MetaTrigger] = opts.trigger
	}

	from := current
	entry := &models.StatusLogEntry{
		ID:         uuid.New(),
		FromStatus: &from,
		ToStatus:   target,
		Note:       note,
		Metadata:   metadata,
		ChangedBy:  opts.Actor,
		ChangedAt:  changedAt,
	}

	err = s.apps.ApplyTransition(ctx, app, repository.StatusChange{
		To:     target,
		Detail: detail,
		At:     changedAt,
		Entry:  entry,
	})
	if err != nil {
		return nil, err
	}

	automated := metadata.Bool(models.MetaAutomated)
	metrics.ObserveTransition(string(from), string(target), automated)
	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"from":           from,
		"to":             target,
		"automated":      automated,
		"trigger":        metadata.String(models.MetaTrigger),
	}).Info("Application status changed")

	return &TransitionResult{Application: app, Entry: entry}, nil
}

// AutoTransitionOnPaymentComplete advances the application to the status
// mapped to a freshly paid stage.
func (s *TransitionService) AutoTransitionOnPaymentComplete(ctx context.Context, applicationID uuid.UUID, stage workflow.PaymentStage, changedBy *uuid.UUID) (*TransitionResult, error) {
	target, ok := workflow.CompletionTarget(stage)
	if !ok {
		s.log.WithField("stage", stage).Error("Payment stage has no completion transition")
		return nil, &UnmappedStageError{Stage: stage}
	}

	return s.RequestTransition(ctx, applicationID, target, paymentCompletionOptions(stage, changedBy))
}

// ResumePaymentTransition retries the completion transition of a stage that
// was recorded as paid while the status change itself failed. It returns a
// nil result when the application is already at the stage's target or has
// moved past it.
func (s *TransitionService) ResumePaymentTransition(ctx context.Context, applicationID uuid.UUID, stage workflow.PaymentStage, changedBy *uuid.UUID) (*TransitionResult, error) {
	target, ok := workflow.CompletionTarget(stage)
	if !ok {
		return nil, &UnmappedStageError{Stage: stage}
	}

	opts := paymentCompletionOptions(stage, changedBy)
	opts.pending = true
	return s.RequestTransition(ctx, applicationID, target, opts)
}

func paymentCompletionOptions(stage workflow.PaymentStage, changedBy *uuid.UUID) TransitionOptions {
	return TransitionOptions{
		Detail:   workflow.CompletionDetail(stage),
		Actor:    changedBy,
		Metadata: models.JSONB{models.MetaStage: string(stage)},
		trigger:  models.TriggerPaymentCompleted,
	}
}

func (s *TransitionService) missingPayments(ctx context.Context, applicationID uuid.UUID, target workflow.Status) ([]workflow.PaymentStage, error) {
	var missing []workflow.PaymentStage
	for _, stage := range workflow.RequiredPaymentStages(target) {
		done, err := s.payments.IsStageCompleted(ctx, applicationID, stage)
		if err != nil {
			return nil, err
		}
		if !done {
			missing = append(missing, stage)
		}
	}
	return missing, nil
}
