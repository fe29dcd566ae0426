// internal/repository/audit_repository.go
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/javajoker/trademark-backend/internal/models"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return classify("create audit log", r.db.WithContext(ctx).Create(entry).Error)
}
