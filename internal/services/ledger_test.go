package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trademark-backend/internal/config"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

func quoted(appID uuid.UUID, stage workflow.PaymentStage, amount, paid int64, status models.PaymentStatus) models.Payment {
	p := models.Payment{
		ApplicationID: appID,
		Stage:         stage,
		Status:        status,
		Amount:        decimal.NewNullDecimal(decimal.NewFromInt(amount)),
		PaidAmount:    decimal.NewFromInt(paid),
		Currency:      "KRW",
	}
	p.ID = uuid.New()
	return p
}

func newTestLedger(store PaymentStore, now time.Time) *LedgerService {
	svc := NewLedgerService(store, config.PaymentConfig{DefaultCurrency: "KRW", DueInDays: 7}, quietLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestSummarizePayments(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appID := uuid.New()
	yesterday := now.Add(-24 * time.Hour)

	filing := quoted(appID, workflow.StageFiling, 100000, 100000, models.PaymentStatusPaid)
	office := quoted(appID, workflow.StageOfficeAction, 50000, 0, models.PaymentStatusUnpaid)
	office.DueAt = &yesterday

	summary := SummarizePayments([]models.Payment{filing, office}, now)

	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(150000)))
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(100000)))
	assert.True(t, summary.Remaining.Equal(decimal.NewFromInt(50000)))
	assert.True(t, summary.HasOverdue)
	assert.False(t, summary.AllPaid)
	require.Len(t, summary.Stages, 2)
	assert.Equal(t, 100.0, summary.Stages[0].Progress)
	assert.True(t, summary.Stages[1].IsOverdue)
}

func TestSummarizePayments_Empty(t *testing.T) {
	summary := SummarizePayments(nil, time.Now())

	assert.True(t, summary.TotalAmount.IsZero())
	assert.True(t, summary.Remaining.IsZero())
	assert.False(t, summary.HasOverdue)
	assert.True(t, summary.AllPaid)
	assert.Empty(t, summary.Stages)
}

func TestSummarizePayments_UnquotedStageCountsAsZero(t *testing.T) {
	appID := uuid.New()
	pending := models.Payment{ApplicationID: appID, Stage: workflow.StageRegistration, Status: models.PaymentStatusNotRequested}

	summary := SummarizePayments([]models.Payment{pending}, time.Now())

	assert.True(t, summary.TotalAmount.IsZero())
	assert.False(t, summary.AllPaid)
}

func TestPaymentProgress(t *testing.T) {
	appID := uuid.New()
	over := quoted(appID, workflow.StageFiling, 100, 150, models.PaymentStatusPartial)
	zero := quoted(appID, workflow.StageFiling, 0, 0, models.PaymentStatusUnpaid)

	tests := []struct {
		name    string
		payment *models.Payment
		want    float64
	}{
		{"nil payment", nil, 0},
		{"unquoted", &models.Payment{}, 0},
		{"zero amount", &zero, 0},
		{"half paid", ptr(quoted(appID, workflow.StageFiling, 100000, 50000, models.PaymentStatusPartial)), 50},
		{"third paid", ptr(quoted(appID, workflow.StageFiling, 3, 1, models.PaymentStatusPartial)), 33.33},
		{"overpaid clamps", &over, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PaymentProgress(tt.payment))
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestIsStageCompleted(t *testing.T) {
	appID := uuid.New()
	partial := quoted(appID, workflow.StageFiling, 100000, 40000, models.PaymentStatusPartial)
	paid := quoted(appID, workflow.StageOfficeAction, 50000, 50000, models.PaymentStatusPaid)
	ledger := newTestLedger(newStubPayments(partial, paid), time.Now())
	ctx := context.Background()

	done, err := ledger.IsStageCompleted(ctx, appID, workflow.StageFiling)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = ledger.IsStageCompleted(ctx, appID, workflow.StageOfficeAction)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = ledger.IsStageCompleted(ctx, appID, workflow.StageRegistration)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestFetchPayments_StorageFailure(t *testing.T) {
	store := newStubPayments()
	store.err = &repository.StorageError{Op: "list payments", Err: errors.New("connection reset")}
	ledger := newTestLedger(store, time.Now())

	_, err := ledger.FetchPayments(context.Background(), uuid.New())

	var storageErr *repository.StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestRecordPaymentConfirmation(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appID := uuid.New()
	payment := quoted(appID, workflow.StageFiling, 100000, 0, models.PaymentStatusUnpaid)
	store := newStubPayments(payment)
	ledger := newTestLedger(store, now)
	ctx := context.Background()

	got, err := ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
		PaymentID:    payment.ID,
		PaidAmount:   decimal.NewFromInt(30000),
		RemitterName: "ACME Co",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, got.Status)
	assert.Nil(t, got.PaidAt)

	got, err = ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
		PaymentID:            payment.ID,
		PaidAmount:           decimal.NewFromInt(100000),
		RemitterName:         "ACME Co",
		TransactionReference: "TX-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, now, *got.PaidAt)
	assert.Equal(t, "TX-1", got.TransactionReference)

	_, err = ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
		PaymentID:  payment.ID,
		PaidAmount: decimal.NewFromInt(100000),
	})
	assert.ErrorIs(t, err, ErrPaymentSettled)
}

func TestRecordPaymentConfirmation_Rejections(t *testing.T) {
	appID := uuid.New()
	payment := quoted(appID, workflow.StageFiling, 100000, 0, models.PaymentStatusUnpaid)
	unquoted := models.Payment{ApplicationID: appID, Stage: workflow.StageRegistration, Status: models.PaymentStatusNotRequested}
	unquoted.ID = uuid.New()
	ledger := newTestLedger(newStubPayments(payment, unquoted), time.Now())
	ctx := context.Background()

	_, err := ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{PaymentID: payment.ID, PaidAmount: decimal.NewFromInt(100001)})
	assert.ErrorIs(t, err, ErrOverpayment)

	_, err = ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{PaymentID: payment.ID, PaidAmount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{PaymentID: unquoted.ID, PaidAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrPaymentNotQuoted)

	_, err = ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{PaymentID: uuid.New(), PaidAmount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestRecordPaymentConfirmation_PaidAmountNeverDecreases(t *testing.T) {
	payment := quoted(uuid.New(), workflow.StageFiling, 100000, 60000, models.PaymentStatusPartial)
	store := newStubPayments(payment)
	ledger := newTestLedger(store, time.Now())
	ctx := context.Background()

	for _, paid := range []int64{0, 59999} {
		_, err := ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
			PaymentID:    payment.ID,
			PaidAmount:   decimal.NewFromInt(paid),
			RemitterName: "ACME Co",
		})
		assert.ErrorIs(t, err, ErrPaidAmountDecreased, "paid %d", paid)
	}

	stored, err := store.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(60000)))
	assert.Equal(t, models.PaymentStatusPartial, stored.Status)

	// Restating the current amount is accepted.
	got, err := ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
		PaymentID:    payment.ID,
		PaidAmount:   decimal.NewFromInt(60000),
		RemitterName: "ACME Co",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, got.Status)
}

func TestRecordPaymentConfirmation_IntentAppliedOnce(t *testing.T) {
	payment := quoted(uuid.New(), workflow.StageFiling, 100000, 40000, models.PaymentStatusPartial)
	store := newStubPayments(payment)
	ledger := newTestLedger(store, time.Now())
	ctx := context.Background()

	got, err := ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
		PaymentID:    payment.ID,
		PaidAmount:   decimal.NewFromInt(70000),
		RemitterName: "stripe",
		IntentID:     "pi_partial",
	})
	require.NoError(t, err)
	assert.True(t, got.HasAppliedIntent("pi_partial"))

	_, err = ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
		PaymentID:    payment.ID,
		PaidAmount:   decimal.NewFromInt(100000),
		RemitterName: "stripe",
		IntentID:     "pi_partial",
	})
	assert.ErrorIs(t, err, ErrIntentAlreadyApplied)

	stored, err := store.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(70000)))
	assert.Equal(t, models.PaymentStatusPartial, stored.Status)
}

func TestRequestPayment(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appID := uuid.New()
	store := newStubPayments()
	ledger := newTestLedger(store, now)
	ctx := context.Background()

	payment, err := ledger.RequestPayment(ctx, &RequestPaymentRequest{
		ApplicationID: appID,
		Stage:         "office_action",
		Amount:        decimal.NewFromInt(250000),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, payment.Status)
	assert.Equal(t, "KRW", payment.Currency)
	require.NotNil(t, payment.DueAt)
	assert.Equal(t, now.AddDate(0, 0, 7), *payment.DueAt)

	_, err = ledger.RecordPaymentConfirmation(ctx, &PaymentConfirmation{
		PaymentID:  payment.ID,
		PaidAmount: decimal.NewFromInt(50000),
	})
	require.NoError(t, err)

	requoted, err := ledger.RequestPayment(ctx, &RequestPaymentRequest{
		ApplicationID: appID,
		Stage:         "office_action",
		Amount:        decimal.NewFromInt(300000),
		Currency:      "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, payment.ID, requoted.ID)
	assert.Equal(t, models.PaymentStatusPartial, requoted.Status)
	assert.Equal(t, "USD", requoted.Currency)

	_, err = ledger.RequestPayment(ctx, &RequestPaymentRequest{
		ApplicationID: appID,
		Stage:         "office_action",
		Amount:        decimal.NewFromInt(10000),
	})
	assert.ErrorIs(t, err, ErrOverpayment)

	_, err = ledger.RequestPayment(ctx, &RequestPaymentRequest{ApplicationID: appID, Stage: "filing", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ledger.RequestPayment(ctx, &RequestPaymentRequest{ApplicationID: appID, Stage: "renewal", Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
}

func TestRequestPayment_QuoteOnly(t *testing.T) {
	ledger := newTestLedger(newStubPayments(), time.Now())

	payment, err := ledger.RequestPayment(context.Background(), &RequestPaymentRequest{
		ApplicationID: uuid.New(),
		Stage:         "registration",
		Amount:        decimal.NewFromInt(56000),
		QuoteOnly:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusQuoteSent, payment.Status)
}

func TestReconcileOverdue(t *testing.T) {
	store := newStubPayments()
	store.marked = 3
	ledger := newTestLedger(store, time.Now())

	n, err := ledger.ReconcileOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestGetPayment(t *testing.T) {
	payment := quoted(uuid.New(), workflow.StageFiling, 100000, 0, models.PaymentStatusUnpaid)
	svc := newTestLedger(newStubPayments(payment), time.Now())

	got, err := svc.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ApplicationID, got.ApplicationID)

	_, err = svc.GetPayment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
