package crmsync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veltex/warehouse-backend/internal/grants"
	"github.com/veltex/warehouse-backend/internal/ingest"
	"github.com/veltex/warehouse-backend/internal/reservations"
	"github.com/veltex/warehouse-backend/pkg/db/models"
	"github.com/veltex/warehouse-backend/pkg/enums"
	"github.com/veltex/warehouse-backend/pkg/logger"
)

// ReservationStore is the reservation surface the handlers depend on.
type ReservationStore interface {
	FindByCRMDealID(ctx context.Context, crmDealID string) (*models.Reservation, error)
	Create(ctx context.Context, params reservations.CreateParams) (*models.Reservation, error)
	Release(ctx context.Context, crmDealID, reason string) (bool, error)
	SetLineQuantity(ctx context.Context, reservationID uuid.UUID, quality, color string, quantity decimal.Decimal, unit string) error
	RemoveLine(ctx context.Context, reservationID uuid.UUID, quality, color string) (bool, error)
}

// OrderStore is the sales-order surface the handlers depend on.
type OrderStore interface {
	CancelByCRMDealID(ctx context.Context, crmDealID, reason string) (int64, error)
}

// GrantStore is the access-snapshot surface the handlers depend on.
type GrantStore interface {
	LastAppliedSeq(ctx context.Context, subjectID string) (int64, bool, error)
	ApplySnapshot(ctx context.Context, subjectID string, seq int64, grants []grants.GrantInput) error
}

// ViolationSink records contract violations without affecting the response.
type ViolationSink interface {
	Record(ctx context.Context, v ingest.Violation)
}

// Result is a handler's business outcome for an applied event. Ignored marks
// acknowledged-but-discarded deliveries (out-of-order snapshots); Ref carries
// a handler-specific identifier such as the reservation id.
type Result struct {
	Success bool
	Message string
	Ignored bool
	Ref     string
}

// Service routes a verified, ledger-claimed CRM event to its handler. Every
// handler is idempotent at the business level on top of the ledger's dedup.
type Service struct {
	reservations ReservationStore
	orders       OrderStore
	grants       GrantStore
	violations   ViolationSink
	logg         *logger.Logger
}

func NewService(
	reservationStore ReservationStore,
	orderStore OrderStore,
	grantStore GrantStore,
	violations ViolationSink,
	logg *logger.Logger,
) (*Service, error) {
	if reservationStore == nil {
		return nil, errors.New("crmsync: reservation store is required")
	}
	if orderStore == nil {
		return nil, errors.New("crmsync: order store is required")
	}
	if grantStore == nil {
		return nil, errors.New("crmsync: grant store is required")
	}
	if violations == nil {
		return nil, errors.New("crmsync: violation sink is required")
	}
	if logg == nil {
		return nil, errors.New("crmsync: logger is required")
	}
	return &Service{
		reservations: reservationStore,
		orders:       orderStore,
		grants:       grantStore,
		violations:   violations,
		logg:         logg,
	}, nil
}

// Dispatch runs the handler for the event type. A returned error means the
// handler failed and the caller must settle the ledger row as failed; the
// Result is only meaningful on a nil error.
func (s *Service) Dispatch(ctx context.Context, event InboundEvent) (Result, error) {
	eventType, err := enums.ParseCRMEventType(event.EventType)
	if err != nil {
		// The controller rejects unknown types before the ledger; reaching
		// here means a routing bug, not caller input.
		return Result{}, err
	}

	ctx = s.logg.WithEventType(ctx, string(eventType))
	ctx = s.logg.WithIdempotencyKey(ctx, event.IdempotencyKey)

	switch eventType {
	case enums.CRMEventDealWon:
		return s.handleDealWon(ctx, event)
	case enums.CRMEventDealCancelled:
		return s.handleDealCancelled(ctx, event)
	case enums.CRMEventDealLinesUpdated:
		return s.handleDealLinesUpdated(ctx, event)
	case enums.CRMEventDealApproved, enums.CRMEventDealAccepted:
		return s.handleObservational(ctx, event, eventType)
	case enums.CRMEventOrgAccessUpdated:
		return s.handleOrgAccess(ctx, event)
	default:
		return Result{}, errors.New("no handler registered for event type " + string(eventType))
	}
}
