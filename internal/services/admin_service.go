// internal/services/admin_service.go
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[workflow.Status]int64, error)
}

type PaymentStats interface {
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
	OutstandingByCurrency(ctx context.Context) (map[string]decimal.Decimal, error)
}

type DeliveryStats interface {
	CountFailedSince(ctx context.Context, since time.Time) (int64, error)
}

type AdminService struct {
	apps       StatusCounter
	payments   PaymentStats
	deliveries DeliveryStats
	now        func() time.Time
}

func NewAdminService(apps StatusCounter, payments PaymentStats, deliveries DeliveryStats) *AdminService {
	return &AdminService{
		apps:       apps,
		payments:   payments,
		deliveries: deliveries,
		now:        time.Now,
	}
}

// GetDashboardStats reports failed deliveries over the last 24 hours.
func (s *AdminService) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now()
	stats := &models.DashboardStats{
		ByStatus:           make(map[string]int64),
		OutstandingBalance: make(map[string]string),
	}

	counts, err := s.apps.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for status, n := range counts {
		stats.ByStatus[string(status)] = n
		stats.TotalApplications += n
		if !status.IsTerminal() {
			stats.ActiveApplications += n
		}
	}

	if stats.OverduePayments, err = s.payments.CountOverdue(ctx, now); err != nil {
		return nil, err
	}

	outstanding, err := s.payments.OutstandingByCurrency(ctx)
	if err != nil {
		return nil, err
	}
	for currency, amount := range outstanding {
		stats.OutstandingBalance[currency] = amount.StringFixed(2)
	}

	if s.deliveries != nil {
		if stats.FailedDeliveries, err = s.deliveries.CountFailedSince(ctx, now.Add(-24*time.Hour)); err != nil {
			return nil, err
		}
	}

	return stats, nil
}
