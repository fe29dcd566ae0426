// internal/repository/payment_repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListByApplication returns every stage payment of an application in
// creation order.
func (r *PaymentRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, classify("list payments", err)
	}
	return payments, nil
}

// GetByStage returns (nil, nil) when the stage has no payment row.
func (r *PaymentRepository) GetByStage(ctx context.Context, applicationID uuid.UUID, stage workflow.PaymentStage) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND stage = ?", applicationID, stage).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get payment by stage", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, classify("get payment", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	err := classify("create payment", r.db.WithContext(ctx).Create(payment).Error)
	if errors.Is(err, ErrDuplicate) {
		return ErrPaymentStageExists
	}
	return err
}

func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return classify("update payment", r.db.WithContext(ctx).Save(payment).Error)
}

// MarkOverdue syncs the stored overdue status with the due date: unpaid rows
// past due become overdue and overdue rows whose due date moved are restored.
func (r *PaymentRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("due_at IS NOT NULL AND due_at < ?", now).
			Where("status IN ?", []models.PaymentStatus{
				models.PaymentStatusQuoteSent,
				models.PaymentStatusUnpaid,
				models.PaymentStatusPartial,
			}).
			Update("status", models.PaymentStatusOverdue)
		if res.Error != nil {
			return res.Error
		}
		affected += res.RowsAffected

		res = tx.Model(&models.Payment{}).
			Where("status = ?", models.PaymentStatusOverdue).
			Where("due_at IS NULL OR due_at >= ?", now).
			Update("status", gorm.Expr("CASE WHEN paid_amount > 0 THEN ? ELSE ? END",
				models.PaymentStatusPartial, models.PaymentStatusUnpaid))
		if res.Error != nil {
			return res.Error
		}
		affected += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, classify("mark overdue payments", err)
	}
	return affected, nil
}

// CountOverdue counts rows Payment.IsOverdue would report: past due and not paid.
func (r *PaymentRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("due_at IS NOT NULL AND due_at < ? AND status <> ?", now, models.PaymentStatusPaid).
		Count(&count).Error
	if err != nil {
		return 0, classify("count overdue payments", err)
	}
	return count, nil
}

// OutstandingByCurrency sums quoted but unpaid amounts per currency.
func (r *PaymentRepository) OutstandingByCurrency(ctx context.Context) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Currency    string
		Outstanding decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("currency, COALESCE(SUM(amount - paid_amount), 0) AS outstanding").
		Where("amount IS NOT NULL AND status NOT IN ?", []models.PaymentStatus{
			models.PaymentStatusPaid,
			models.PaymentStatusRefunded,
			models.PaymentStatusRefundRequested,
		}).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, classify("sum outstanding payments", err)
	}

	out := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.Currency] = row.Outstanding
	}
	return out, nil
}
