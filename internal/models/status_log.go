// internal/models/status_log.go
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/trademark-backend/internal/workflow"
)

const (
	MetaAutomated = "automated"
	MetaTrigger   = "trigger"
	MetaStage     = "stage"

	TriggerPaymentCompleted = "payment_completed"
	TriggerManual           = "manual"
)

// StatusLogEntry is one row of the append-only transition history. Rows are
// never updated; the database rejects UPDATE and DELETE on the table.
type StatusLogEntry struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ApplicationID uuid.UUID        `json:"application_id" gorm:"type:uuid;not null;index"`
	FromStatus    *workflow.Status `json:"from_status" gorm:"type:varchar(40)"`
	ToStatus      workflow.Status  `json:"to_status" gorm:"type:varchar(40);not null"`
	Note          string           `json:"note,omitempty" gorm:"type:text"`
	Metadata      JSONB            `json:"metadata" gorm:"type:jsonb"`
	ChangedBy     *uuid.UUID       `json:"changed_by" gorm:"type:uuid"`
	ChangedAt     time.Time        `json:"changed_at" gorm:"not null;index"`
}

func (StatusLogEntry) TableName() string {
	return "status_logs"
}

func (e *StatusLogEntry) Automated() bool {
	return e.Metadata.Bool(MetaAutomated)
}
