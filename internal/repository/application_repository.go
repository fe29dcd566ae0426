// internal/repository/application_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/trademark-backend/internal/database"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

// StatusChange is the persisted part of a transition.
type StatusChange struct {
	To     workflow.Status
	Detail string
	At     time.Time
	Entry  *models.StatusLogEntry
}

// ApplicationFilter narrows admin listings.
type ApplicationFilter struct {
	Status workflow.Status
	UserID *uuid.UUID
	Search string
}

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Get(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, classify("get application", err)
	}
	return &app, nil
}

// Create inserts a new application together with its first status log entry
// and, when given, the initial payment row.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application, entry *models.StatusLogEntry, payment *models.Payment) error {
	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return err
		}

		entry.ApplicationID = app.ID
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		if payment != nil {
			payment.ApplicationID = app.ID
			if err := tx.Create(payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return classify("create application", err)
}

// ApplyTransition writes the new status and its log entry atomically. The
// update only matches when app.Version is still current; otherwise
// ErrConcurrentUpdate is returned and nothing is written.
func (r *ApplicationRepository) ApplyTransition(ctx context.Context, app *models.Application, change StatusChange) error {
	err := database.WithTransaction(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		res := tx.Model(&models.Application{}).
			Where("id = ? AND version = ?", app.ID, app.Version).
			Updates(map[string]interface{}{
				"status":            change.To,
				"status_detail":     change.Detail,
				"status_updated_at": change.At,
				"version":           gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		change.Entry.ApplicationID = app.ID
		return tx.Create(change.Entry).Error
	})
	if err != nil {
		return classify("apply transition", err)
	}

	app.Status = change.To
	app.StatusDetail = change.Detail
	app.StatusUpdatedAt = change.At
	app.Version++
	return nil
}

// ListStatusLog returns the history of an application, oldest first.
func (r *ApplicationRepository) ListStatusLog(ctx context.Context, applicationID uuid.UUID) ([]models.StatusLogEntry, error) {
	var entries []models.StatusLogEntry
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("changed_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, classify("list status log", err)
	}
	return entries, nil
}

func (r *ApplicationRepository) List(ctx context.Context, filter ApplicationFilter, offset, limit int) ([]models.Application, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("brand_name ILIKE ? OR management_number ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify("count applications", err)
	}

	var apps []models.Application
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error; err != nil {
		return nil, 0, classify("list applications", err)
	}
	return apps, total, nil
}

func (r *ApplicationRepository) CountByStatus(ctx context.Context) (map[workflow.Status]int64, error) {
	var rows []struct {
		Status workflow.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, classify("count applications by status", err)
	}

	counts := make(map[workflow.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
