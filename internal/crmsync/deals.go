package crmsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/veltex/warehouse-backend/internal/reservations"
	"github.com/veltex/warehouse-backend/pkg/enums"
)

// handleDealWon reserves stock for a freshly won deal. An existing reservation
// for the deal is a success, not a duplicate: the handler must be re-runnable.
func (s *Service) handleDealWon(ctx context.Context, event InboundEvent) (Result, error) {
	var payload DealWonPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("deal.won payload: %w", err)
	}
	if payload.CRMDealID == "" {
		return Result{}, errors.New("deal.won payload missing crm_deal_id")
	}

	existing, err := s.reservations.FindByCRMDealID(ctx, payload.CRMDealID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		s.logg.Info(ctx, "reservation already exists for deal "+payload.CRMDealID)
		return Result{
			Success: true,
			Message: fmt.Sprintf("reservation already exists for deal %s", payload.CRMDealID),
			Ref:     existing.ID.String(),
		}, nil
	}

	params := reservations.CreateParams{
		CRMDealID:    payload.CRMDealID,
		DealName:     payload.DealName,
		CustomerName: payload.CustomerName,
	}
	for _, line := range payload.Lines {
		if line.Quality == "" || line.Color == "" {
			return Result{}, fmt.Errorf("deal.won line missing quality or color")
		}
		params.Lines = append(params.Lines, reservations.LineInput{
			Quality:  line.Quality,
			Color:    line.Color,
			Quantity: line.Quantity,
			Unit:     line.Unit,
		})
	}

	created, err := s.reservations.Create(ctx, params)
	if errors.Is(err, reservations.ErrDealAlreadyReserved) {
		// Lost a race against a concurrent delivery of the same deal.
		winner, lookupErr := s.reservations.FindByCRMDealID(ctx, payload.CRMDealID)
		if lookupErr != nil || winner == nil {
			return Result{}, err
		}
		return Result{
			Success: true,
			Message: fmt.Sprintf("reservation already exists for deal %s", payload.CRMDealID),
			Ref:     winner.ID.String(),
		}, nil
	}
	if err != nil {
		return Result{}, err
	}

	s.logg.Info(ctx, fmt.Sprintf("reserved %d fabric lines for deal %s", len(created.Lines), payload.CRMDealID))
	return Result{
		Success: true,
		Message: fmt.Sprintf("reservation created for deal %s with %d lines", payload.CRMDealID, len(created.Lines)),
		Ref:     created.ID.String(),
	}, nil
}

// handleDealCancelled is a best-effort dual update: release the reservation
// and cancel open orders. Both sides are attempted even if one fails, and
// absence of either is normal.
func (s *Service) handleDealCancelled(ctx context.Context, event InboundEvent) (Result, error) {
	var payload DealCancelledPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("deal.cancelled payload: %w", err)
	}
	if payload.CRMDealID == "" {
		return Result{}, errors.New("deal.cancelled payload missing crm_deal_id")
	}

	reason := payload.Reason
	if reason == "" {
		reason = "deal cancelled in CRM"
	}

	released, releaseErr := s.reservations.Release(ctx, payload.CRMDealID, reason)
	cancelled, cancelErr := s.orders.CancelByCRMDealID(ctx, payload.CRMDealID, reason)
	if err := multierr.Combine(releaseErr, cancelErr); err != nil {
		return Result{}, err
	}

	message := fmt.Sprintf("deal %s cancelled:", payload.CRMDealID)
	if released {
		message += " reservation released,"
	} else {
		message += " no active reservation,"
	}
	message += fmt.Sprintf(" %d orders cancelled", cancelled)

	s.logg.Info(ctx, message)
	return Result{Success: true, Message: message}, nil
}

// handleDealLinesUpdated applies line-level changes to the deal's active
// reservation. A missing or released reservation is a reported failure.
func (s *Service) handleDealLinesUpdated(ctx context.Context, event InboundEvent) (Result, error) {
	var payload DealLinesUpdatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("deal.lines_updated payload: %w", err)
	}
	if payload.CRMDealID == "" {
		return Result{}, errors.New("deal.lines_updated payload missing crm_deal_id")
	}
	if len(payload.Changes) == 0 {
		return Result{}, errors.New("deal.lines_updated payload has no changes")
	}

	reservation, err := s.reservations.FindByCRMDealID(ctx, payload.CRMDealID)
	if err != nil {
		return Result{}, err
	}
	if reservation == nil {
		return Result{}, fmt.Errorf("no reservation found for deal %s", payload.CRMDealID)
	}
	if reservation.Status != enums.ReservationStatusActive {
		return Result{}, fmt.Errorf("reservation for deal %s is not active", payload.CRMDealID)
	}

	applied := 0
	removed := 0
	for _, change := range payload.Changes {
		if change.Quality == "" || change.Color == "" {
			return Result{}, errors.New("line change missing quality or color")
		}
		switch change.Op {
		case LineOpSetQuantity:
			if err := s.reservations.SetLineQuantity(ctx, reservation.ID, change.Quality, change.Color, change.Quantity, change.Unit); err != nil {
				return Result{}, err
			}
			applied++
		case LineOpRemove:
			if _, err := s.reservations.RemoveLine(ctx, reservation.ID, change.Quality, change.Color); err != nil {
				return Result{}, err
			}
			removed++
		default:
			return Result{}, fmt.Errorf("unknown line change op %q", change.Op)
		}
	}

	message := fmt.Sprintf("updated reservation for deal %s: %d quantities set, %d lines removed", payload.CRMDealID, applied, removed)
	s.logg.Info(ctx, message)
	return Result{Success: true, Message: message, Ref: reservation.ID.String()}, nil
}

// handleObservational acknowledges deal.approved / deal.accepted without any
// state change. Extension points; do not infer business effects here.
func (s *Service) handleObservational(ctx context.Context, event InboundEvent, eventType enums.CRMEventType) (Result, error) {
	var payload DealObservationalPayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return Result{}, fmt.Errorf("%s payload: %w", eventType, err)
		}
	}

	message := fmt.Sprintf("%s acknowledged, no state change", eventType)
	if payload.CRMDealID != "" {
		message = fmt.Sprintf("%s acknowledged for deal %s, no state change", eventType, payload.CRMDealID)
	}
	s.logg.Info(ctx, message)
	return Result{Success: true, Message: message}, nil
}
