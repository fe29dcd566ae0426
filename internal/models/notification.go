// internal/models/notification.go
package models

import (
	"github.com/google/uuid"

	"github.com/javajoker/trademark-backend/internal/workflow"
)

// NotificationDelivery records the outcome of one channel of one dispatch.
type NotificationDelivery struct {
	BaseModel
	ApplicationID uuid.UUID        `json:"application_id" gorm:"type:uuid;not null;index"`
	Status        workflow.Status  `json:"status" gorm:"type:varchar(40);not null"`
	Channel       workflow.Channel `json:"channel" gorm:"type:varchar(20);not null;index"`
	Target        string           `json:"target" gorm:"size:255"`
	Outcome       DeliveryOutcome  `json:"outcome" gorm:"type:varchar(10);not null;index"`
	Attempts      int              `json:"attempts" gorm:"not null;default:0"`
	ErrorCode     string           `json:"error_code,omitempty" gorm:"size:64"`
	LastError     string           `json:"last_error,omitempty" gorm:"type:text"`
}
