package crmsync

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// InboundEvent is the top-level envelope every CRM delivery carries. The
// payload stays raw until the router knows which variant to decode it into.
type InboundEvent struct {
	EventType      string          `json:"event_type" validate:"required"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
	Timestamp      *int64          `json:"timestamp,omitempty"`
}

// DealLine is one fabric position on a won deal, keyed by quality + color.
type DealLine struct {
	Quality  string          `json:"quality" validate:"required"`
	Color    string          `json:"color" validate:"required"`
	Quantity decimal.Decimal `json:"quantity_m" validate:"required"`
	Unit     string          `json:"unit,omitempty"`
}

// DealWonPayload creates a stock reservation for the deal.
type DealWonPayload struct {
	CRMDealID    string     `json:"crm_deal_id" validate:"required"`
	DealName     string     `json:"deal_name,omitempty"`
	CustomerName string     `json:"customer_name,omitempty"`
	Lines        []DealLine `json:"lines" validate:"dive"`
}

// DealCancelledPayload releases the reservation and cancels open orders.
type DealCancelledPayload struct {
	CRMDealID string `json:"crm_deal_id" validate:"required"`
	Reason    string `json:"reason,omitempty"`
}

// Line change operations accepted by deal.lines_updated.
const (
	LineOpSetQuantity = "set_quantity"
	LineOpRemove      = "remove"
)

// LineChange is one mutation against an existing reservation line.
type LineChange struct {
	Op       string          `json:"op" validate:"required,oneof=set_quantity remove"`
	Quality  string          `json:"quality" validate:"required"`
	Color    string          `json:"color" validate:"required"`
	Quantity decimal.Decimal `json:"quantity_m,omitempty"`
	Unit     string          `json:"unit,omitempty"`
}

// DealLinesUpdatedPayload applies line changes to an active reservation.
type DealLinesUpdatedPayload struct {
	CRMDealID string       `json:"crm_deal_id" validate:"required"`
	Changes   []LineChange `json:"changes" validate:"required,min=1,dive"`
}

// DealObservationalPayload backs deal.approved and deal.accepted, which are
// acknowledged without any state change.
type DealObservationalPayload struct {
	CRMDealID string `json:"crm_deal_id,omitempty"`
}

// GrantEntry is one organization grant inside an access snapshot. IsActive is
// a pointer so an omitted flag (conforming senders omit it) is distinguishable
// from an explicit false.
type GrantEntry struct {
	CRMOrganizationID string `json:"crm_organization_id"`
	Role              string `json:"role"`
	IsActive          *bool  `json:"is_active,omitempty"`
}

// OrgAccessPayload carries a subject's full grant snapshot plus the sequence
// that orders it. Seq is a pointer so a missing field fails validation instead
// of defaulting to zero.
type OrgAccessPayload struct {
	SubjectID string       `json:"subject_id"`
	Seq       *int64       `json:"seq"`
	Grants    []GrantEntry `json:"grants"`
}
