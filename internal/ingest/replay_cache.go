package ingest

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/veltex/warehouse-backend/pkg/logger"
	"github.com/veltex/warehouse-backend/pkg/redis"
)

// ReplayCache is an optional fast path in front of the durable ledger: once a
// key settles as processed, replays can be acknowledged without a DB round
// trip. The cache is never the source of truth; every miss or redis error
// falls through to the ledger.
type ReplayCache struct {
	store redis.ReplayStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewReplayCache(store redis.ReplayStore, ttl time.Duration, logg *logger.Logger) *ReplayCache {
	if store == nil {
		return nil
	}
	return &ReplayCache{store: store, ttl: ttl, logg: logg}
}

// Lookup returns the cached acknowledgement message for a processed key.
func (c *ReplayCache) Lookup(ctx context.Context, idempotencyKey string) (string, bool) {
	if c == nil || c.store == nil {
		return "", false
	}
	value, err := c.store.Get(ctx, c.store.ReplayKey(idempotencyKey))
	if err != nil {
		if !errors.Is(err, goredis.Nil) && c.logg != nil {
			c.logg.Warn(ctx, "replay cache lookup failed: "+err.Error())
		}
		return "", false
	}
	return value, true
}

// MarkProcessed stores the acknowledgement for a settled key.
func (c *ReplayCache) MarkProcessed(ctx context.Context, idempotencyKey, message string) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Set(ctx, c.store.ReplayKey(idempotencyKey), message, c.ttl); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "replay cache write failed: "+err.Error())
	}
}
