// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/trademark-backend/internal/workflow"
)

// Payment is the fee record of one stage of one application.
type Payment struct {
	BaseModel
	ApplicationID        uuid.UUID             `json:"application_id" gorm:"type:uuid;not null;uniqueIndex:idx_payments_application_stage"`
	Stage                workflow.PaymentStage `json:"stage" gorm:"type:varchar(20);not null;uniqueIndex:idx_payments_application_stage"`
	Status               PaymentStatus         `json:"status" gorm:"type:varchar(20);default:'not_requested';index"`
	Amount               decimal.NullDecimal   `json:"amount" gorm:"type:decimal(14,2)"`
	PaidAmount           decimal.Decimal       `json:"paid_amount" gorm:"type:decimal(14,2);not null;default:0"`
	Currency             string                `json:"currency" gorm:"size:3;default:'KRW'"`
	DueAt                *time.Time            `json:"due_at"`
	PaidAt               *time.Time            `json:"paid_at"`
	RemitterName         string                `json:"remitter_name,omitempty" gorm:"size:255"`
	PaymentMethod        string                `json:"payment_method,omitempty" gorm:"size:50"`
	TransactionReference string                `json:"transaction_reference,omitempty" gorm:"size:255"`
	Notes                string                `json:"notes,omitempty" gorm:"type:text"`
	Metadata             JSONB                 `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	Application *Application `json:"application,omitempty" gorm:"foreignKey:ApplicationID"`
}

// IsOverdue derives the overdue condition from the due date. A stored
// overdue status is only a cached copy of this value.
func (p *Payment) IsOverdue(now time.Time) bool {
	return p.DueAt != nil && now.After(*p.DueAt) && p.Status != PaymentStatusPaid
}

// AmountOrZero returns the quoted amount, or zero before a quote exists.
func (p *Payment) AmountOrZero() decimal.Decimal {
	if !p.Amount.Valid {
		return decimal.Zero
	}
	return p.Amount.Decimal
}

func (p *Payment) Remaining() decimal.Decimal {
	rest := p.AmountOrZero().Sub(p.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// MetaStripeIntents lists the Stripe PaymentIntents already applied to a payment.
const MetaStripeIntents = "stripe_intents"

// HasAppliedIntent reports whether the PaymentIntent was already counted in PaidAmount.
func (p *Payment) HasAppliedIntent(intentID string) bool {
	if intentID == "" {
		return false
	}
	switch ids := p.Metadata[MetaStripeIntents].(type) {
	case []interface{}:
		for _, id := range ids {
			if id == intentID {
				return true
			}
		}
	case []string:
		for _, id := range ids {
			if id == intentID {
				return true
			}
		}
	}
	return false
}

func (p *Payment) AddAppliedIntent(intentID string) {
	if intentID == "" || p.HasAppliedIntent(intentID) {
		return
	}

	ids := []interface{}{}
	switch existing := p.Metadata[MetaStripeIntents].(type) {
	case []interface{}:
		ids = append(ids, existing...)
	case []string:
		for _, id := range existing {
			ids = append(ids, id)
		}
	}

	metadata := JSONB{}
	for k, v := range p.Metadata {
		metadata[k] = v
	}
	metadata[MetaStripeIntents] = append(ids, intentID)
	p.Metadata = metadata
}
