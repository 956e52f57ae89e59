package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veltex/warehouse-backend/pkg/enums"
)

// Reservation holds warehouse stock against a won CRM deal until the order is
// dispatched or the deal falls through.
type Reservation struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CRMDealID     string                  `gorm:"column:crm_deal_id;not null;uniqueIndex:ux_reservations_crm_deal_id"`
	DealName      string                  `gorm:"column:deal_name"`
	CustomerName  string                  `gorm:"column:customer_name"`
	Status        enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'active'"`
	ReleaseReason *string                 `gorm:"column:release_reason"`
	Lines         []ReservationLine       `gorm:"foreignKey:ReservationID"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
