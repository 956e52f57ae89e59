package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veltex/warehouse-backend/pkg/db"
	"github.com/veltex/warehouse-backend/pkg/db/models"
	"github.com/veltex/warehouse-backend/pkg/enums"
	pkgerrors "github.com/veltex/warehouse-backend/pkg/errors"
)

// BeginOutcome is the ledger's verdict on one inbound delivery.
type BeginOutcome string

const (
	// OutcomeFresh: first sighting of the key, caller owns the dispatch.
	OutcomeFresh BeginOutcome = "fresh"
	// OutcomeReplay: a settled or in-flight record exists, short-circuit with
	// the cached acknowledgement and perform no side effects.
	OutcomeReplay BeginOutcome = "replay"
	// OutcomeRetry: prior attempt failed and the payload hash matches, the
	// caller owns the re-dispatch.
	OutcomeRetry BeginOutcome = "retry"
	// OutcomeDrift: prior attempt failed and the payload differs. Caller bug;
	// the original record is preserved untouched apart from the attempt count.
	OutcomeDrift BeginOutcome = "drift"
)

// BeginParams captures everything the ledger persists about a delivery before
// any handler runs.
type BeginParams struct {
	IdempotencyKey    string
	EventType         string
	RawBody           []byte
	ReceivedSignature string
	ReceivedTimestamp *time.Time
	HMACVerified      bool
}

// BeginResult pairs the verdict with the ledger row backing it.
type BeginResult struct {
	Outcome BeginOutcome
	Record  *models.WebhookEvent
}

// Ledger is the durable idempotency record of every inbound CRM event.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(gdb *gorm.DB) *Ledger {
	return &Ledger{db: gdb}
}

// HashBody digests the exact raw bytes received. Hashing a re-serialized
// payload would mask drift, so callers must pass the unparsed body.
func HashBody(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Lookup fetches the ledger row for a key, nil when unseen.
func (l *Ledger) Lookup(ctx context.Context, idempotencyKey string) (*models.WebhookEvent, error) {
	var record models.WebhookEvent
	err := l.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger lookup")
	}
	return &record, nil
}

// Begin claims the idempotency key for this delivery. Exactly one concurrent
// caller per key observes OutcomeFresh (or OutcomeRetry); everyone else gets
// OutcomeReplay. The claim is made durable before any handler runs so a crash
// mid-dispatch leaves a visible `processing` row rather than nothing.
func (l *Ledger) Begin(ctx context.Context, params BeginParams) (*BeginResult, error) {
	if params.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}

	hash := HashBody(params.RawBody)

	existing, err := l.Lookup(ctx, params.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return l.claimFresh(ctx, params, hash)
	}

	if existing.Status.IsSettled() {
		return &BeginResult{Outcome: OutcomeReplay, Record: existing}, nil
	}

	// Status is failed: compare the stored first-receipt hash against this
	// attempt. A match is a legitimate retry; a mismatch is payload drift.
	if existing.PayloadHash == hash {
		return l.claimRetry(ctx, params, existing)
	}
	return l.recordDrift(ctx, params)
}

func (l *Ledger) claimFresh(ctx context.Context, params BeginParams, hash string) (*BeginResult, error) {
	record := &models.WebhookEvent{
		ID:                uuid.New(),
		IdempotencyKey:    params.IdempotencyKey,
		EventType:         params.EventType,
		Status:            enums.WebhookEventStatusPending,
		AttemptCount:      1,
		PayloadHash:       hash,
		HMACVerified:      params.HMACVerified,
		ReceivedSignature: params.ReceivedSignature,
		ReceivedTimestamp: params.ReceivedTimestamp,
	}

	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err) {
			// Lost the insert race to a concurrent duplicate delivery.
			winner, lookupErr := l.Lookup(ctx, params.IdempotencyKey)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return &BeginResult{Outcome: OutcomeReplay, Record: winner}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger insert")
	}

	if err := l.markProcessing(ctx, record); err != nil {
		return nil, err
	}
	return &BeginResult{Outcome: OutcomeFresh, Record: record}, nil
}

func (l *Ledger) claimRetry(ctx context.Context, params BeginParams, existing *models.WebhookEvent) (*BeginResult, error) {
	if !existing.Status.CanTransitionTo(enums.WebhookEventStatusPending) {
		return &BeginResult{Outcome: OutcomeReplay, Record: existing}, nil
	}

	res := l.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("idempotency_key = ? AND status = ?", params.IdempotencyKey, enums.WebhookEventStatusFailed).
		Updates(map[string]any{
			"status":        enums.WebhookEventStatusPending,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "ledger retry claim")
	}
	if res.RowsAffected == 0 {
		// A concurrent retry already claimed the row.
		winner, err := l.Lookup(ctx, params.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return &BeginResult{Outcome: OutcomeReplay, Record: winner}, nil
	}

	record, err := l.Lookup(ctx, params.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if err := l.markProcessing(ctx, record); err != nil {
		return nil, err
	}
	return &BeginResult{Outcome: OutcomeRetry, Record: record}, nil
}

func (l *Ledger) recordDrift(ctx context.Context, params BeginParams) (*BeginResult, error) {
	// Only the attempt count moves. The original error message, hash and
	// status stay as they were; the drift itself lands in the violation log.
	res := l.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("idempotency_key = ? AND status = ?", params.IdempotencyKey, enums.WebhookEventStatusFailed).
		Update("attempt_count", gorm.Expr("attempt_count + 1"))
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "ledger drift update")
	}

	record, err := l.Lookup(ctx, params.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &BeginResult{Outcome: OutcomeDrift, Record: record}, nil
}

func (l *Ledger) markProcessing(ctx context.Context, record *models.WebhookEvent) error {
	if !record.Status.CanTransitionTo(enums.WebhookEventStatusProcessing) {
		return pkgerrors.New(pkgerrors.CodeInternal, "illegal ledger transition to processing")
	}
	res := l.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("idempotency_key = ? AND status = ?", record.IdempotencyKey, enums.WebhookEventStatusPending).
		Update("status", enums.WebhookEventStatusProcessing)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "ledger mark processing")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "ledger row claimed by another worker")
	}
	record.Status = enums.WebhookEventStatusProcessing
	return nil
}

// Finish settles a claimed row after the handler ran. Failures are persisted
// before the caller surfaces its 500 so the attempt is always recorded.
func (l *Ledger) Finish(ctx context.Context, idempotencyKey string, success bool, message string) error {
	target := enums.WebhookEventStatusProcessed
	if !success {
		target = enums.WebhookEventStatusFailed
	}
	if !enums.WebhookEventStatusProcessing.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeInternal, "illegal ledger transition from processing")
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       target,
		"processed_at": &now,
	}
	if success {
		updates["error_message"] = nil
	} else {
		updates["error_message"] = message
	}

	res := l.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("idempotency_key = ? AND status = ?", idempotencyKey, enums.WebhookEventStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "ledger finish")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "ledger row not in processing state")
	}
	return nil
}
