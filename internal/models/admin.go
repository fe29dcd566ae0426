// internal/models/admin.go
package models

import (
	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	OldValues    JSONB      `json:"old_values" gorm:"type:jsonb"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// DashboardStats backs the admin dashboard.
type DashboardStats struct {
	TotalApplications  int64             `json:"total_applications"`
	ByStatus           map[string]int64  `json:"by_status"`
	ActiveApplications int64             `json:"active_applications"`
	OverduePayments    int64             `json:"overdue_payments"`
	OutstandingBalance map[string]string `json:"outstanding_balance"`
	FailedDeliveries   int64             `json:"failed_deliveries"`
}
