package enums

import "fmt"

// CRMEventType is the canonical event_type accepted by the ingestion gateway.
type CRMEventType string

const (
	CRMEventDealWon          CRMEventType = "deal.won"
	CRMEventDealCancelled    CRMEventType = "deal.cancelled"
	CRMEventDealLinesUpdated CRMEventType = "deal.lines_updated"
	CRMEventDealApproved     CRMEventType = "deal.approved"
	CRMEventDealAccepted     CRMEventType = "deal.accepted"
	CRMEventOrgAccessUpdated CRMEventType = "org_access.updated"
)

var validCRMEventTypes = []CRMEventType{
	CRMEventDealWon,
	CRMEventDealCancelled,
	CRMEventDealLinesUpdated,
	CRMEventDealApproved,
	CRMEventDealAccepted,
	CRMEventOrgAccessUpdated,
}

// IsValid reports whether the value matches a known CRM event type.
func (t CRMEventType) IsValid() bool {
	for _, candidate := range validCRMEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCRMEventType converts the raw string to CRMEventType.
func ParseCRMEventType(value string) (CRMEventType, error) {
	for _, candidate := range validCRMEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown crm event type %q", value)
}
