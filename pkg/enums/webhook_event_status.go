package enums

import "fmt"

// WebhookEventStatus describes the lifecycle of an ingested CRM event in the
// idempotency ledger.
type WebhookEventStatus string

const (
	WebhookEventStatusPending    WebhookEventStatus = "pending"
	WebhookEventStatusProcessing WebhookEventStatus = "processing"
	WebhookEventStatusProcessed  WebhookEventStatus = "processed"
	WebhookEventStatusFailed     WebhookEventStatus = "failed"
)

var validWebhookEventStatuses = []WebhookEventStatus{
	WebhookEventStatusPending,
	WebhookEventStatusProcessing,
	WebhookEventStatusProcessed,
	WebhookEventStatusFailed,
}

// IsValid reports whether the value matches the canonical status enum.
func (s WebhookEventStatus) IsValid() bool {
	for _, candidate := range validWebhookEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSettled reports whether the event has reached a terminal-for-replay state.
// A settled record short-circuits duplicate deliveries; only `failed` records
// accept a verified retry.
func (s WebhookEventStatus) IsSettled() bool {
	return s == WebhookEventStatusPending ||
		s == WebhookEventStatusProcessing ||
		s == WebhookEventStatusProcessed
}

// CanTransitionTo encodes the legal lifecycle moves:
// pending -> processing -> processed|failed, plus failed -> pending for a
// hash-verified retry. Everything else is disallowed.
func (s WebhookEventStatus) CanTransitionTo(next WebhookEventStatus) bool {
	switch s {
	case WebhookEventStatusPending:
		return next == WebhookEventStatusProcessing
	case WebhookEventStatusProcessing:
		return next == WebhookEventStatusProcessed || next == WebhookEventStatusFailed
	case WebhookEventStatusFailed:
		return next == WebhookEventStatusPending
	default:
		return false
	}
}

// ParseWebhookEventStatus converts the raw string to WebhookEventStatus.
func ParseWebhookEventStatus(value string) (WebhookEventStatus, error) {
	for _, candidate := range validWebhookEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event status %q", value)
}
