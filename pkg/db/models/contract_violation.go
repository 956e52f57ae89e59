package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veltex/warehouse-backend/pkg/enums"
)

// ContractViolation is an append-only audit row for malformed or out-of-order
// input from the CRM. Rows are never mutated after insert.
type ContractViolation struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ViolationType  enums.ViolationType `gorm:"column:violation_type;type:violation_type;not null"`
	EventType      string              `gorm:"column:event_type;not null"`
	IdempotencyKey string              `gorm:"column:idempotency_key;not null;index"`
	Message        string              `gorm:"column:message;not null"`
	FieldName      *string             `gorm:"column:field_name"`
	FieldValue     *string             `gorm:"column:field_value"`
	ExpectedValue  *string             `gorm:"column:expected_value"`
	WebhookEventID *uuid.UUID          `gorm:"column:webhook_event_id;type:uuid"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}
