package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veltex/warehouse-backend/pkg/enums"
)

// WebhookEvent is the durable idempotency ledger row for one inbound CRM
// event. The unique constraint on idempotency_key makes concurrent duplicate
// deliveries first-writer-wins; payload_hash is set at first receipt and
// compared, never overwritten, on every retry of the same key.
type WebhookEvent struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	IdempotencyKey    string                   `gorm:"column:idempotency_key;not null;uniqueIndex:ux_webhook_events_idempotency_key"`
	EventType         string                   `gorm:"column:event_type;not null"`
	Status            enums.WebhookEventStatus `gorm:"column:status;type:webhook_event_status;not null;default:'pending'"`
	AttemptCount      int                      `gorm:"column:attempt_count;not null;default:0"`
	PayloadHash       string                   `gorm:"column:payload_hash;not null"`
	HMACVerified      bool                     `gorm:"column:hmac_verified;not null;default:false"`
	ReceivedSignature string                   `gorm:"column:received_signature"`
	ReceivedTimestamp *time.Time               `gorm:"column:received_timestamp"`
	ErrorMessage      *string                  `gorm:"column:error_message"`
	ProcessedAt       *time.Time               `gorm:"column:processed_at"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
