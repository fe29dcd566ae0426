// internal/services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trademark-backend/internal/config"
	"github.com/javajoker/trademark-backend/internal/metrics"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

// PaymentStore is the persistence the ledger needs.
type PaymentStore interface {
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Payment, error)
	GetByStage(ctx context.Context, applicationID uuid.UUID, stage workflow.PaymentStage) (*models.Payment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type LedgerService struct {
	payments PaymentStore
	config   config.PaymentConfig
	log      logrus.FieldLogger
	now      func() time.Time
}

type StagePaymentSummary struct {
	PaymentID  uuid.UUID             `json:"payment_id"`
	Stage      workflow.PaymentStage `json:"stage"`
	Status     models.PaymentStatus  `json:"status"`
	Amount     decimal.NullDecimal   `json:"amount"`
	PaidAmount decimal.Decimal       `json:"paid_amount"`
	Remaining  decimal.Decimal       `json:"remaining"`
	Currency   string                `json:"currency"`
	DueAt      *time.Time            `json:"due_at,omitempty"`
	PaidAt     *time.Time            `json:"paid_at,omitempty"`
	IsOverdue  bool                  `json:"is_overdue"`
	Progress   float64               `json:"progress"`
}

type ApplicationPaymentSummary struct {
	Stages      []StagePaymentSummary `json:"stages"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
	TotalPaid   decimal.Decimal       `json:"total_paid"`
	Remaining   decimal.Decimal       `json:"remaining"`
	HasOverdue  bool                  `json:"has_overdue"`
	AllPaid     bool                  `json:"all_paid"`
}

type RequestPaymentRequest struct {
	ApplicationID uuid.UUID       `json:"-"`
	Stage         string          `json:"stage" validate:"required,oneof=filing office_action registration"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	DueAt         *time.Time      `json:"due_at,omitempty"`
	QuoteOnly     bool            `json:"quote_only,omitempty"`
	Notes         string          `json:"notes,omitempty" validate:"max=2000"`
}

type PaymentConfirmation struct {
	PaymentID            uuid.UUID       `json:"-"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	RemitterName         string          `json:"remitter_name" validate:"required,max=255"`
	PaymentMethod        string          `json:"payment_method,omitempty" validate:"max=50"`
	TransactionReference string          `json:"transaction_reference,omitempty" validate:"max=255"`
	Notes                string          `json:"notes,omitempty" validate:"max=2000"`
	// IntentID is the Stripe PaymentIntent behind the confirmation, if any.
	// An intent is applied at most once.
	IntentID string `json:"-"`
}

func NewLedgerService(payments PaymentStore, cfg config.PaymentConfig, log logrus.FieldLogger) *LedgerService {
	return &LedgerService{
		payments: payments,
		config:   cfg,
		log:      log,
		now:      time.Now,
	}
}

// FetchPayments returns the stage payments of an application, oldest first.
func (s *LedgerService) FetchPayments(ctx context.Context, applicationID uuid.UUID) ([]models.Payment, error) {
	return s.payments.ListByApplication(ctx, applicationID)
}

func (s *LedgerService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	return payment, err
}

// GetPaymentByStage returns nil without error when the stage was never requested.
func (s *LedgerService) GetPaymentByStage(ctx context.Context, applicationID uuid.UUID, stage workflow.PaymentStage) (*models.Payment, error) {
	return s.payments.GetByStage(ctx, applicationID, stage)
}

// IsStageCompleted is true only for a stage whose payment status is exactly paid.
func (s *LedgerService) IsStageCompleted(ctx context.Context, applicationID uuid.UUID, stage workflow.PaymentStage) (bool, error) {
	payment, err := s.payments.GetByStage(ctx, applicationID, stage)
	if err != nil {
		return false, err
	}
	return payment != nil && payment.Status == models.PaymentStatusPaid, nil
}

func (s *LedgerService) Summary(ctx context.Context, applicationID uuid.UUID) (*ApplicationPaymentSummary, error) {
	payments, err := s.payments.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	summary := SummarizePayments(payments, s.now())
	return &summary, nil
}

// SummarizePayments aggregates stage payments as of now.
func SummarizePayments(payments []models.Payment, now time.Time) ApplicationPaymentSummary {
	summary := ApplicationPaymentSummary{
		Stages:      make([]StagePaymentSummary, 0, len(payments)),
		TotalAmount: decimal.Zero,
		TotalPaid:   decimal.Zero,
		AllPaid:     true,
	}

	for i := range payments {
		p := &payments[i]
		overdue := p.IsOverdue(now)

		summary.Stages = append(summary.Stages, StagePaymentSummary{
			PaymentID:  p.ID,
			Stage:      p.Stage,
			Status:     p.Status,
			Amount:     p.Amount,
			PaidAmount: p.PaidAmount,
			Remaining:  p.Remaining(),
			Currency:   p.Currency,
			DueAt:      p.DueAt,
			PaidAt:     p.PaidAt,
			IsOverdue:  overdue,
			Progress:   PaymentProgress(p),
		})

		summary.TotalAmount = summary.TotalAmount.Add(p.AmountOrZero())
		summary.TotalPaid = summary.TotalPaid.Add(p.PaidAmount)
		summary.HasOverdue = summary.HasOverdue || overdue
		if !p.Status.Settled() {
			summary.AllPaid = false
		}
	}

	summary.Remaining = summary.TotalAmount.Sub(summary.TotalPaid)
	if summary.Remaining.IsNegative() {
		summary.Remaining = decimal.Zero
	}
	return summary
}

var hundred = decimal.NewFromInt(100)

// PaymentProgress is the paid share of the quoted amount in percent,
// clamped to [0, 100]. Unquoted or zero amounts yield 0.
func PaymentProgress(p *models.Payment) float64 {
	if p == nil || !p.Amount.Valid || !p.Amount.Decimal.IsPositive() {
		return 0
	}

	pct := p.PaidAmount.Div(p.Amount.Decimal).Mul(hundred)
	switch {
	case pct.LessThan(decimal.Zero):
		return 0
	case pct.GreaterThan(hundred):
		return 100
	}
	return pct.Round(2).InexactFloat64()
}

// RequestPayment quotes a stage, creating the payment row or re-quoting an
// open one.
func (s *LedgerService) RequestPayment(ctx context.Context, req *RequestPaymentRequest) (*models.Payment, error) {
	stage, err := workflow.ParseStage(req.Stage)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	dueAt := req.DueAt
	if dueAt == nil && s.config.DueInDays > 0 {
		due := s.now().AddDate(0, 0, s.config.DueInDays)
		dueAt = &due
	}

	status := models.PaymentStatusUnpaid
	if req.QuoteOnly {
		status = models.PaymentStatusQuoteSent
	}

	payment, err := s.payments.GetByStage(ctx, req.ApplicationID, stage)
	if err != nil {
		return nil, err
	}

	if payment == nil {
		payment = &models.Payment{
			ApplicationID: req.ApplicationID,
			Stage:         stage,
			Status:        status,
			Amount:        decimal.NewNullDecimal(req.Amount),
			PaidAmount:    decimal.Zero,
			Currency:      currency,
			DueAt:         dueAt,
			Notes:         req.Notes,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"application_id": req.ApplicationID,
			"stage":          stage,
			"amount":         req.Amount.String(),
		}).Info("Payment requested")
		return payment, nil
	}

	if payment.Status.Settled() {
		return nil, ErrPaymentSettled
	}
	if payment.PaidAmount.GreaterThan(req.Amount) {
		return nil, ErrOverpayment
	}
	if payment.PaidAmount.IsPositive() {
		status = models.PaymentStatusPartial
	}

	payment.Amount = decimal.NewNullDecimal(req.Amount)
	payment.Currency = currency
	payment.DueAt = dueAt
	payment.Status = status
	if req.Notes != "" {
		payment.Notes = req.Notes
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// RecordPaymentConfirmation stores the cumulative amount received for a
// stage. A full payment marks the stage paid.
func (s *LedgerService) RecordPaymentConfirmation(ctx context.Context, req *PaymentConfirmation) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, req.PaymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if payment.HasAppliedIntent(req.IntentID) {
		return nil, ErrIntentAlreadyApplied
	}
	if !payment.Amount.Valid {
		return nil, ErrPaymentNotQuoted
	}
	if req.PaidAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if req.PaidAmount.GreaterThan(payment.Amount.Decimal) {
		return nil, fmt.Errorf("%w: paid %s, quoted %s", ErrOverpayment, req.PaidAmount, payment.Amount.Decimal)
	}
	if payment.Status.Settled() {
		return nil, ErrPaymentSettled
	}
	// paid_amount is cumulative
	if req.PaidAmount.LessThan(payment.PaidAmount) {
		return nil, fmt.Errorf("%w: paid %s, recorded %s", ErrPaidAmountDecreased, req.PaidAmount, payment.PaidAmount)
	}

	now := s.now()
	payment.PaidAmount = req.PaidAmount
	payment.RemitterName = req.RemitterName
	if req.PaymentMethod != "" {
		payment.PaymentMethod = req.PaymentMethod
	}
	if req.TransactionReference != "" {
		payment.TransactionReference = req.TransactionReference
	}
	if req.Notes != "" {
		payment.Notes = req.Notes
	}
	payment.AddAppliedIntent(req.IntentID)

	switch {
	case req.PaidAmount.Equal(payment.Amount.Decimal):
		payment.Status = models.PaymentStatusPaid
		payment.PaidAt = &now
	case req.PaidAmount.IsPositive():
		payment.Status = models.PaymentStatusPartial
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	metrics.PaymentConfirmations.WithLabelValues(string(payment.Stage), string(payment.Status)).Inc()
	s.log.WithFields(logrus.Fields{
		"application_id": payment.ApplicationID,
		"payment_id":     payment.ID,
		"stage":          payment.Stage,
		"status":         payment.Status,
	}).Info("Payment confirmation recorded")

	return payment, nil
}

// ReconcileOverdue brings the stored overdue status in line with due dates.
func (s *LedgerService) ReconcileOverdue(ctx context.Context) (int64, error) {
	n, err := s.payments.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("updated", n).Info("Reconciled overdue payments")
	}
	return n, nil
}
