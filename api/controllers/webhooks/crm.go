package webhooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veltex/warehouse-backend/api/responses"
	"github.com/veltex/warehouse-backend/api/validators"
	"github.com/veltex/warehouse-backend/internal/crmsync"
	"github.com/veltex/warehouse-backend/internal/ingest"
	"github.com/veltex/warehouse-backend/pkg/enums"
	pkgerrors "github.com/veltex/warehouse-backend/pkg/errors"
	"github.com/veltex/warehouse-backend/pkg/logger"
	"github.com/veltex/warehouse-backend/pkg/metrics"
	"github.com/veltex/warehouse-backend/pkg/signature"
	"github.com/veltex/warehouse-backend/pkg/types"
)

// Signature headers sent by the CRM, with the aliases its older webhook
// runtime still uses.
const (
	HeaderSignature       = "X-CRM-Signature"
	HeaderTimestamp       = "X-CRM-Timestamp"
	HeaderSignatureLegacy = "X-Webhook-Signature"
	HeaderTimestampLegacy = "X-Webhook-Timestamp"

	maxBodyBytes = 1 << 20
)

// Dispatcher runs the business handler for a claimed event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event crmsync.InboundEvent) (crmsync.Result, error)
}

// CRMWebhookDeps wires the ingestion pipeline into the handler.
type CRMWebhookDeps struct {
	Verifier    *signature.Verifier
	Ledger      *ingest.Ledger
	Service     Dispatcher
	Violations  *ingest.ViolationRecorder
	ReplayCache *ingest.ReplayCache
	Metrics     *metrics.WebhookMetrics
	Logger      *logger.Logger
}

// CRMWebhook ingests one CRM delivery: verify signature, claim the
// idempotency key, dispatch the handler, settle the ledger, acknowledge.
func CRMWebhook(deps CRMWebhookDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			w.Header().Set("Allow", "POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodPost:
		default:
			responses.WriteError(r.Context(), deps.Logger, w,
				pkgerrors.New(pkgerrors.CodeMethod, "only POST is accepted"))
			return
		}

		ctx := r.Context()
		started := time.Now()

		rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read request body"))
			return
		}

		sigHeader := headerWithFallback(r, HeaderSignature, HeaderSignatureLegacy)
		tsHeader := headerWithFallback(r, HeaderTimestamp, HeaderTimestampLegacy)

		if err := deps.Verifier.Verify(rawBody, sigHeader, tsHeader); err != nil {
			responses.WriteError(ctx, deps.Logger, w, authError(err))
			return
		}

		var event crmsync.InboundEvent
		if err := validators.DecodeJSONBytes(rawBody, &event); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		// Unknown types are rejected before any ledger write so they never
		// pollute the ledger.
		if _, err := enums.ParseCRMEventType(event.EventType); err != nil {
			responses.WriteError(ctx, deps.Logger, w,
				pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown event_type %q", event.EventType)))
			return
		}

		ctx = deps.Logger.WithEventType(ctx, event.EventType)
		ctx = deps.Logger.WithIdempotencyKey(ctx, event.IdempotencyKey)
		deps.Metrics.IncReceived(event.EventType)

		if message, ok := deps.ReplayCache.Lookup(ctx, event.IdempotencyKey); ok {
			deps.Metrics.IncOutcome(event.EventType, "replayed")
			responses.WriteAck(w, http.StatusOK, types.WebhookAck{
				Success: true,
				Message: message,
				Replay:  true,
			})
			return
		}

		receivedAt := parseTimestampHeader(tsHeader)
		begin, err := deps.Ledger.Begin(ctx, ingest.BeginParams{
			IdempotencyKey:    event.IdempotencyKey,
			EventType:         event.EventType,
			RawBody:           rawBody,
			ReceivedSignature: sigHeader,
			ReceivedTimestamp: receivedAt,
			HMACVerified:      true,
		})
		if err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		switch begin.Outcome {
		case ingest.OutcomeReplay:
			deps.Metrics.IncOutcome(event.EventType, "replayed")
			responses.WriteAck(w, http.StatusOK, types.WebhookAck{
				Success: true,
				Message: replayMessage(begin),
				Replay:  true,
			})
			return

		case ingest.OutcomeDrift:
			deps.Violations.Record(ctx, ingest.Violation{
				Type:           enums.ViolationPayloadHashDrift,
				EventType:      event.EventType,
				IdempotencyKey: event.IdempotencyKey,
				Message:        "idempotency key reused with a different payload body",
				FieldName:      ingest.StrPtr("payload_hash"),
				FieldValue:     ingest.StrPtr(ingest.HashBody(rawBody)),
				ExpectedValue:  ingest.StrPtr(begin.Record.PayloadHash),
				WebhookEventID: &begin.Record.ID,
			})
			deps.Metrics.IncOutcome(event.EventType, "drift")
			responses.WriteError(ctx, deps.Logger, w,
				pkgerrors.New(pkgerrors.CodeIdempotency, "payload drift: idempotency key reused with a different body"))
			return
		}

		// OutcomeFresh or OutcomeRetry: this request owns the dispatch.
		result, handlerErr := deps.Service.Dispatch(ctx, event)
		if handlerErr != nil {
			// The failure is recorded before the 500 goes out so the sender's
			// retry finds a failed row, not a missing one.
			if finishErr := deps.Ledger.Finish(ctx, event.IdempotencyKey, false, handlerErr.Error()); finishErr != nil {
				deps.Logger.Error(ctx, "failed to settle ledger row as failed", finishErr)
			}
			deps.Metrics.IncOutcome(event.EventType, "failed")
			deps.Metrics.ObserveDuration(event.EventType, time.Since(started))
			responses.WriteError(ctx, deps.Logger, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, handlerErr, "event handler failed"))
			return
		}

		if err := deps.Ledger.Finish(ctx, event.IdempotencyKey, true, result.Message); err != nil {
			deps.Logger.Error(ctx, "failed to settle ledger row as processed", err)
			deps.Metrics.IncOutcome(event.EventType, "failed")
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		deps.ReplayCache.MarkProcessed(ctx, event.IdempotencyKey, result.Message)

		outcome := "processed"
		if result.Ignored {
			outcome = "ignored"
		}
		deps.Metrics.IncOutcome(event.EventType, outcome)
		deps.Metrics.ObserveDuration(event.EventType, time.Since(started))

		responses.WriteAck(w, http.StatusOK, types.WebhookAck{
			Success: true,
			Message: result.Message,
			Ignored: result.Ignored,
			Ref:     result.Ref,
		})
	}
}

func headerWithFallback(r *http.Request, primary, legacy string) string {
	if value := r.Header.Get(primary); strings.TrimSpace(value) != "" {
		return value
	}
	return r.Header.Get(legacy)
}

// authError maps each verifier rejection to its own 401 so the CRM operator
// can tell a clock problem from a key problem.
func authError(err error) error {
	switch {
	case errors.Is(err, signature.ErrMissingSignature):
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "signature header missing")
	case errors.Is(err, signature.ErrMissingTimestamp):
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "timestamp header missing")
	case errors.Is(err, signature.ErrMalformedTimestamp):
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "timestamp header is not a unix timestamp")
	case errors.Is(err, signature.ErrStaleTimestamp):
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "timestamp outside the freshness window")
	default:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch")
	}
}

func parseTimestampHeader(tsHeader string) *time.Time {
	ts, err := strconv.ParseInt(strings.TrimSpace(tsHeader), 10, 64)
	if err != nil {
		return nil
	}
	at := time.Unix(ts, 0).UTC()
	return &at
}

func replayMessage(begin *ingest.BeginResult) string {
	switch begin.Record.Status {
	case enums.WebhookEventStatusProcessed:
		return "event already processed"
	default:
		return "event is already being processed"
	}
}
