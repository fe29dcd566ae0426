// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/javajoker/trademark-backend/internal/workflow"
)

type Application struct {
	BaseModel
	UserID           uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	BrandName        string          `json:"brand_name" gorm:"size:255;not null"`
	ManagementNumber string          `json:"management_number" gorm:"size:32;uniqueIndex;not null"`
	NiceClasses      pq.StringArray  `json:"nice_classes" gorm:"type:text[]"`
	Description      string          `json:"description,omitempty" gorm:"type:text"`
	Status           workflow.Status `json:"status" gorm:"type:varchar(40);not null;index"`
	StatusDetail     string          `json:"status_detail" gorm:"type:text"`
	StatusUpdatedAt  time.Time       `json:"status_updated_at"`
	Version          int64           `json:"version" gorm:"not null;default:1"`
	Metadata         JSONB           `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	User      *User            `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Payments  []Payment        `json:"payments,omitempty" gorm:"foreignKey:ApplicationID"`
	StatusLog []StatusLogEntry `json:"status_log,omitempty" gorm:"foreignKey:ApplicationID"`
}
