package ingest

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veltex/warehouse-backend/pkg/db/models"
	"github.com/veltex/warehouse-backend/pkg/enums"
	"github.com/veltex/warehouse-backend/pkg/logger"
	"github.com/veltex/warehouse-backend/pkg/metrics"
)

// Violation describes one contract breach observed while ingesting an event.
type Violation struct {
	Type           enums.ViolationType
	EventType      string
	IdempotencyKey string
	Message        string
	FieldName      *string
	FieldValue     *string
	ExpectedValue  *string
	WebhookEventID *uuid.UUID
}

// ViolationRecorder appends contract violations to the audit table. Recording
// is fire-and-forget: a failed insert is logged and swallowed, it must never
// alter the response already determined by the ledger and router.
type ViolationRecorder struct {
	db      *gorm.DB
	logg    *logger.Logger
	metrics *metrics.WebhookMetrics
}

func NewViolationRecorder(gdb *gorm.DB, logg *logger.Logger, m *metrics.WebhookMetrics) *ViolationRecorder {
	return &ViolationRecorder{db: gdb, logg: logg, metrics: m}
}

// Record persists one violation row.
func (r *ViolationRecorder) Record(ctx context.Context, v Violation) {
	if r == nil || r.db == nil {
		return
	}

	row := &models.ContractViolation{
		ID:             uuid.New(),
		ViolationType:  v.Type,
		EventType:      v.EventType,
		IdempotencyKey: v.IdempotencyKey,
		Message:        v.Message,
		FieldName:      v.FieldName,
		FieldValue:     v.FieldValue,
		ExpectedValue:  v.ExpectedValue,
		WebhookEventID: v.WebhookEventID,
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if r.logg != nil {
			ctx = r.logg.WithFields(ctx, map[string]any{
				"violation_type":  string(v.Type),
				"idempotency_key": v.IdempotencyKey,
			})
			r.logg.Error(ctx, "contract violation insert failed", err)
		}
		return
	}

	r.metrics.IncViolation(string(v.Type))

	if r.logg != nil {
		ctx = r.logg.WithFields(ctx, map[string]any{
			"violation_type":  string(v.Type),
			"event_type":      v.EventType,
			"idempotency_key": v.IdempotencyKey,
		})
		r.logg.Warn(ctx, v.Message)
	}
}

// StrPtr is a small helper for the optional violation fields.
func StrPtr(value string) *string {
	return &value
}
