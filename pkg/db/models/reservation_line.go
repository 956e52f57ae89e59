package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationLine is one fabric position within a reservation, keyed by
// quality + color. Quantities are fractional meters.
type ReservationLine struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ReservationID uuid.UUID       `gorm:"column:reservation_id;type:uuid;not null;uniqueIndex:ux_reservation_lines_key"`
	Quality       string          `gorm:"column:quality;not null;uniqueIndex:ux_reservation_lines_key"`
	Color         string          `gorm:"column:color;not null;uniqueIndex:ux_reservation_lines_key"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:numeric(12,2);not null"`
	Unit          string          `gorm:"column:unit;not null;default:'m'"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
