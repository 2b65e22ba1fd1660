package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/tax"
)

// RateCache decorates a tax.RateTable with a Redis cache. Rate schedules
// change rarely; a short TTL keeps finalization off the rates table.
type RateCache struct {
	client *redis.Client
	inner  tax.RateTable
	prefix string
	ttl    time.Duration
}

// NewRateCache creates a new RateCache.
func NewRateCache(client *redis.Client, inner tax.RateTable, ttl time.Duration) *RateCache {
	return &RateCache{
		client: client,
		inner:  inner,
		prefix: "whtrate:",
		ttl:    ttl,
	}
}

// EffectiveWHTRate returns the cached rate, falling back to the inner table.
// Cache failures degrade to the inner lookup rather than failing the call.
func (c *RateCache) EffectiveWHTRate(ctx context.Context, procurement domain.ProcurementType) (decimal.Decimal, error) {
	key := c.prefix + string(procurement)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if rate, perr := decimal.NewFromString(cached); perr == nil {
			return rate, nil
		}
	}

	rate, err := c.inner.EffectiveWHTRate(ctx, procurement)
	if err != nil {
		return decimal.Zero, err
	}

	_ = c.client.Set(ctx, key, rate.String(), c.ttl).Err()

	return rate, nil
}
