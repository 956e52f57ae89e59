package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veltex/warehouse-backend/pkg/enums"
)

// SalesOrder is the warehouse-side order derived from a CRM deal. The gateway
// only ever cancels it; creation and fulfilment live elsewhere in the
// application.
type SalesOrder struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CRMDealID      string                 `gorm:"column:crm_deal_id;not null;index"`
	OrderNumber    int                    `gorm:"column:order_number;not null"`
	Status         enums.SalesOrderStatus `gorm:"column:status;type:sales_order_status;not null;default:'open'"`
	ActionRequired bool                   `gorm:"column:action_required;not null;default:false"`
	CancelReason   *string                `gorm:"column:cancel_reason"`
	CancelledAt    *time.Time             `gorm:"column:cancelled_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
