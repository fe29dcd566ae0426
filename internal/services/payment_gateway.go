// internal/services/payment_gateway.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/javajoker/trademark-backend/internal/config"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
)

const eventPaymentIntentSucceeded = "payment_intent.succeeded"

// Currencies Stripe expects in whole units rather than cents.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

func toMinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(hundred).Round(0).IntPart()
}

func fromMinorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type PaymentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
}

// PaymentConfirmer records a confirmed payment and runs its follow-up.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, req *PaymentConfirmation, actor *uuid.UUID) (*PaymentConfirmationResult, error)
	ResumePaymentTransition(ctx context.Context, paymentID uuid.UUID, actor *uuid.UUID) (*PaymentConfirmationResult, error)
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	IntentID     string `json:"intent_id"`
	PaymentID    string `json:"payment_id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

type PaymentGateway struct {
	intents       intentCreator
	payments      PaymentLookup
	confirmer     PaymentConfirmer
	webhookSecret string
	log           logrus.FieldLogger
}

// NewPaymentGateway returns nil when Stripe is not configured.
func NewPaymentGateway(cfg config.PaymentConfig, payments PaymentLookup, confirmer PaymentConfirmer, log logrus.FieldLogger) *PaymentGateway {
	if cfg.StripeSecretKey == "" {
		return nil
	}
	stripe.Key = cfg.StripeSecretKey

	return &PaymentGateway{
		intents:       &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.StripeSecretKey},
		payments:      payments,
		confirmer:     confirmer,
		webhookSecret: cfg.StripeWebhookSecret,
		log:           log,
	}
}

// CreateStageIntent opens a Stripe PaymentIntent for the unpaid remainder of
// a stage payment.
func (g *PaymentGateway) CreateStageIntent(ctx context.Context, paymentID uuid.UUID, requester *models.User) (*PaymentIntentResponse, error) {
	if g == nil {
		return nil, ErrGatewayDisabled
	}

	payment, err := g.payments.GetByID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if !payment.Amount.Valid {
		return nil, ErrPaymentNotQuoted
	}
	if payment.Status.Settled() {
		return nil, ErrPaymentSettled
	}

	remaining := payment.Remaining()
	if !remaining.IsPositive() {
		return nil, ErrPaymentSettled
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(remaining, payment.Currency)),
		Currency: stripe.String(strings.ToLower(payment.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("application_id", payment.ApplicationID.String())
	params.AddMetadata("payment_id", payment.ID.String())
	params.AddMetadata("stage", string(payment.Stage))
	if requester != nil && requester.Email != "" {
		params.ReceiptEmail = stripe.String(requester.Email)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.ID,
		PaymentID:    payment.ID.String(),
		Amount:       remaining.String(),
		Currency:     payment.Currency,
	}, nil
}

// HandleWebhook verifies a Stripe event and applies successful stage payments.
// Unrelated event types are acknowledged and ignored.
func (g *PaymentGateway) HandleWebhook(ctx context.Context, payload []byte, signature string) (*PaymentConfirmationResult, error) {
	if g == nil {
		return nil, ErrGatewayDisabled
	}

	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	if string(event.Type) != eventPaymentIntentSucceeded {
		g.log.WithField("type", event.Type).Debug("Ignoring Stripe event")
		return nil, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	paymentID, err := uuid.Parse(intent.Metadata["payment_id"])
	if err != nil {
		return nil, fmt.Errorf("%w: missing payment_id metadata", ErrInvalidWebhook)
	}

	payment, err := g.payments.GetByID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	// Stripe redelivers events. A redelivery never adds to the paid amount,
	// but a paid stage may still owe its status change.
	if payment.Status.Settled() || payment.HasAppliedIntent(intent.ID) {
		return g.settled(ctx, payment)
	}

	received := fromMinorUnits(intent.AmountReceived, string(intent.Currency))
	total := payment.PaidAmount.Add(received)

	g.log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"intent_id":  intent.ID,
		"received":   received.String(),
	}).Info("Stripe payment succeeded")

	res, err := g.confirmer.ConfirmPayment(ctx, &PaymentConfirmation{
		PaymentID:            payment.ID,
		PaidAmount:           total,
		RemitterName:         remitterName(&intent),
		PaymentMethod:        "stripe",
		TransactionReference: intent.ID,
		IntentID:             intent.ID,
	}, nil)
	if errors.Is(err, ErrIntentAlreadyApplied) {
		return g.settled(ctx, payment)
	}
	return res, err
}

func (g *PaymentGateway) settled(ctx context.Context, payment *models.Payment) (*PaymentConfirmationResult, error) {
	if payment.Status != models.PaymentStatusPaid {
		return &PaymentConfirmationResult{Payment: payment}, nil
	}
	return g.confirmer.ResumePaymentTransition(ctx, payment.ID, nil)
}

func remitterName(intent *stripe.PaymentIntent) string {
	if intent.Shipping != nil && intent.Shipping.Name != "" {
		return intent.Shipping.Name
	}
	if intent.ReceiptEmail != "" {
		return intent.ReceiptEmail
	}
	return "stripe"
}
