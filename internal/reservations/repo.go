package reservations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veltex/warehouse-backend/pkg/db"
	"github.com/veltex/warehouse-backend/pkg/db/models"
	"github.com/veltex/warehouse-backend/pkg/enums"
	pkgerrors "github.com/veltex/warehouse-backend/pkg/errors"
)

// ErrDealAlreadyReserved reports a second reservation attempt for a deal that
// already holds one.
var ErrDealAlreadyReserved = errors.New("a reservation already exists for this deal")

// LineInput is one fabric position to reserve, keyed by quality + color.
type LineInput struct {
	Quality  string
	Color    string
	Quantity decimal.Decimal
	Unit     string
}

// CreateParams describes a new reservation for a won deal.
type CreateParams struct {
	CRMDealID    string
	DealName     string
	CustomerName string
	Lines        []LineInput
}

// Repo owns reservations and their fabric lines.
type Repo struct {
	db *gorm.DB
}

func NewRepo(gdb *gorm.DB) *Repo {
	return &Repo{db: gdb}
}

// WithTx returns a repo bound to the given transaction.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

// FindByCRMDealID loads a reservation with its lines, nil when absent.
func (r *Repo) FindByCRMDealID(ctx context.Context, crmDealID string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("crm_deal_id = ?", crmDealID).
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reservation lookup")
	}
	return &reservation, nil
}

// Create inserts the reservation header and all its lines atomically. A deal
// that already holds a reservation returns ErrDealAlreadyReserved.
func (r *Repo) Create(ctx context.Context, params CreateParams) (*models.Reservation, error) {
	reservation := &models.Reservation{
		ID:           uuid.New(),
		CRMDealID:    params.CRMDealID,
		DealName:     params.DealName,
		CustomerName: params.CustomerName,
		Status:       enums.ReservationStatusActive,
	}
	for _, line := range params.Lines {
		unit := line.Unit
		if unit == "" {
			unit = "m"
		}
		reservation.Lines = append(reservation.Lines, models.ReservationLine{
			ID:            uuid.New(),
			ReservationID: reservation.ID,
			Quality:       line.Quality,
			Color:         line.Color,
			Quantity:      line.Quantity,
			Unit:          unit,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(reservation).Error
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDealAlreadyReserved
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reservation insert")
	}
	return reservation, nil
}

// Release flips an active reservation to released with the given reason. The
// returned bool reports whether a row actually moved; an already-released
// reservation is left untouched.
func (r *Repo) Release(ctx context.Context, crmDealID, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("crm_deal_id = ? AND status = ?", crmDealID, enums.ReservationStatusActive).
		Updates(map[string]any{
			"status":         enums.ReservationStatusReleased,
			"release_reason": reason,
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reservation release")
	}
	return res.RowsAffected > 0, nil
}

// SetLineQuantity upserts one fabric position on a reservation. An existing
// quality+color line gets the new quantity; a new pair is inserted.
func (r *Repo) SetLineQuantity(ctx context.Context, reservationID uuid.UUID, quality, color string, quantity decimal.Decimal, unit string) error {
	if unit == "" {
		unit = "m"
	}
	line := models.ReservationLine{
		ID:            uuid.New(),
		ReservationID: reservationID,
		Quality:       quality,
		Color:         color,
		Quantity:      quantity,
		Unit:          unit,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reservation_id"}, {Name: "quality"}, {Name: "color"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": quantity, "unit": unit}),
		}).
		Create(&line).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reservation line upsert")
	}
	return nil
}

// RemoveLine deletes one fabric position. Removing a line that is not there is
// a no-op; the returned bool reports whether a row went away.
func (r *Repo) RemoveLine(ctx context.Context, reservationID uuid.UUID, quality, color string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("reservation_id = ? AND quality = ? AND color = ?", reservationID, quality, color).
		Delete(&models.ReservationLine{})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reservation line delete")
	}
	return res.RowsAffected > 0, nil
}
