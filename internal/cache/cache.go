package cache

import (
	"context"
	"time"

	"partsledger/internal/core"
)

// PriceCache is a read-through cache for computed selling prices. Misses and
// cache errors are both reported as (nil, false, err); callers fall back to
// the pricing engine either way.
type PriceCache interface {
	Get(ctx context.Context, key string) (*core.PriceQuote, bool, error)
	Set(ctx context.Context, key string, value *core.PriceQuote, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// NoopPriceCache is used when no Redis address is configured: every lookup
// misses and writes go nowhere.
type NoopPriceCache struct{}

func (NoopPriceCache) Get(_ context.Context, _ string) (*core.PriceQuote, bool, error) {
	return nil, false, nil
}

func (NoopPriceCache) Set(_ context.Context, _ string, _ *core.PriceQuote, _ time.Duration) error {
	return nil
}

func (NoopPriceCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
