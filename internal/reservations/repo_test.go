package reservations

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veltex/warehouse-backend/pkg/enums"
)

func setupReservationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	reservations := `
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  crm_deal_id TEXT NOT NULL UNIQUE,
  deal_name TEXT,
  customer_name TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  release_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	reservationLines := `
CREATE TABLE IF NOT EXISTS reservation_lines (
  id TEXT PRIMARY KEY,
  reservation_id TEXT NOT NULL,
  quality TEXT NOT NULL,
  color TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  unit TEXT NOT NULL DEFAULT 'm',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (reservation_id, quality, color)
);`

	require.NoError(t, db.Exec(reservations).Error)
	require.NoError(t, db.Exec(reservationLines).Error)

	require.NoError(t, db.Exec(`DELETE FROM reservation_lines`).Error)
	require.NoError(t, db.Exec(`DELETE FROM reservations`).Error)

	return db
}

func meters(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestCreateReservationWithLines(t *testing.T) {
	repo := NewRepo(setupReservationsTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateParams{
		CRMDealID:    "deal_100",
		DealName:     "Autumn jackets",
		CustomerName: "Nordwand Outdoor",
		Lines: []LineInput{
			{Quality: "Q-2301", Color: "navy", Quantity: meters("120.50")},
			{Quality: "Q-2301", Color: "charcoal", Quantity: meters("80.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusActive, created.Status)

	found, err := repo.FindByCRMDealID(ctx, "deal_100")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Lines, 2)
	assert.Equal(t, "m", found.Lines[0].Unit)
}

func TestCreateDuplicateDeal(t *testing.T) {
	repo := NewRepo(setupReservationsTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{CRMDealID: "deal_101"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, CreateParams{CRMDealID: "deal_101"})
	require.ErrorIs(t, err, ErrDealAlreadyReserved)
}

func TestReleaseActiveReservation(t *testing.T) {
	repo := NewRepo(setupReservationsTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{CRMDealID: "deal_102"})
	require.NoError(t, err)

	moved, err := repo.Release(ctx, "deal_102", "deal cancelled in CRM")
	require.NoError(t, err)
	assert.True(t, moved)

	found, err := repo.FindByCRMDealID(ctx, "deal_102")
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusReleased, found.Status)
	require.NotNil(t, found.ReleaseReason)
	assert.Equal(t, "deal cancelled in CRM", *found.ReleaseReason)

	// Releasing again is a no-op and keeps the original reason.
	moved, err = repo.Release(ctx, "deal_102", "second reason")
	require.NoError(t, err)
	assert.False(t, moved)

	found, err = repo.FindByCRMDealID(ctx, "deal_102")
	require.NoError(t, err)
	assert.Equal(t, "deal cancelled in CRM", *found.ReleaseReason)
}

func TestReleaseUnknownDeal(t *testing.T) {
	repo := NewRepo(setupReservationsTestDB(t))

	moved, err := repo.Release(context.Background(), "deal_unknown", "whatever")
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestSetLineQuantityUpserts(t *testing.T) {
	repo := NewRepo(setupReservationsTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateParams{
		CRMDealID: "deal_103",
		Lines:     []LineInput{{Quality: "Q-1188", Color: "ecru", Quantity: meters("45.00")}},
	})
	require.NoError(t, err)

	// Existing line gets the new quantity.
	require.NoError(t, repo.SetLineQuantity(ctx, created.ID, "Q-1188", "ecru", meters("60.25"), "m"))
	// New quality+color pair is inserted.
	require.NoError(t, repo.SetLineQuantity(ctx, created.ID, "Q-1188", "bordeaux", meters("15.00"), "m"))

	found, err := repo.FindByCRMDealID(ctx, "deal_103")
	require.NoError(t, err)
	require.Len(t, found.Lines, 2)

	byColor := map[string]string{}
	for _, line := range found.Lines {
		byColor[line.Color] = line.Quantity.String()
	}
	assert.Equal(t, "60.25", byColor["ecru"])
	assert.Equal(t, "15", byColor["bordeaux"])
}

func TestRemoveLine(t *testing.T) {
	repo := NewRepo(setupReservationsTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateParams{
		CRMDealID: "deal_104",
		Lines:     []LineInput{{Quality: "Q-7070", Color: "black", Quantity: meters("200.00")}},
	})
	require.NoError(t, err)

	gone, err := repo.RemoveLine(ctx, created.ID, "Q-7070", "black")
	require.NoError(t, err)
	assert.True(t, gone)

	// Absent line removal is a quiet no-op.
	gone, err = repo.RemoveLine(ctx, created.ID, "Q-7070", "black")
	require.NoError(t, err)
	assert.False(t, gone)

	found, err := repo.FindByCRMDealID(ctx, "deal_104")
	require.NoError(t, err)
	assert.Empty(t, found.Lines)
}
