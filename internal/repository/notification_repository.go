// internal/repository/notification_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/trademark-backend/internal/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Record(ctx context.Context, deliveries []models.NotificationDelivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return classify("record deliveries", r.db.WithContext(ctx).Create(&deliveries).Error)
}

func (r *NotificationRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.NotificationDelivery, error) {
	var deliveries []models.NotificationDelivery
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&deliveries).Error
	if err != nil {
		return nil, classify("list deliveries", err)
	}
	return deliveries, nil
}

func (r *NotificationRepository) CountFailedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NotificationDelivery{}).
		Where("outcome = ? AND created_at >= ?", models.DeliveryOutcomeFailed, since).
		Count(&count).Error
	if err != nil {
		return 0, classify("count failed deliveries", err)
	}
	return count, nil
}
