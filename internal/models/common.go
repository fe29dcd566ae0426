// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}

	return json.Unmarshal(bytes, j)
}

// Bool reads a boolean flag, treating absent or mistyped values as false.
func (j JSONB) Bool(key string) bool {
	v, ok := j[key].(bool)
	return ok && v
}

func (j JSONB) String(key string) string {
	v, _ := j[key].(string)
	return v
}

// Enums
type UserRole string

const (
	UserRoleClient UserRole = "client"
	UserRoleAdmin  UserRole = "admin"
)

type PaymentStatus string

const (
	PaymentStatusNotRequested    PaymentStatus = "not_requested"
	PaymentStatusQuoteSent       PaymentStatus = "quote_sent"
	PaymentStatusUnpaid          PaymentStatus = "unpaid"
	PaymentStatusPartial         PaymentStatus = "partial"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusOverdue         PaymentStatus = "overdue"
	PaymentStatusRefundRequested PaymentStatus = "refund_requested"
	PaymentStatusRefunded        PaymentStatus = "refunded"
)

// Settled reports whether the payment no longer expects money from the applicant.
func (s PaymentStatus) Settled() bool {
	return s == PaymentStatusPaid || s == PaymentStatusRefunded
}

type DeliveryOutcome string

const (
	DeliveryOutcomeSent   DeliveryOutcome = "sent"
	DeliveryOutcomeFailed DeliveryOutcome = "failed"
)
