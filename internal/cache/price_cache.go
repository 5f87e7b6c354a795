package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/checkout-engine/internal/pricing"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("price not in cache")

// PriceCache decorates a Catalog with a Redis read-through cache for unit
// prices. Cache failures degrade to the underlying catalog; a stale or
// missing cache never fails a checkout.
type PriceCache struct {
	catalog pricing.Catalog
	client  *redis.Client
	baseTTL time.Duration
	sfg     singleflight.Group // Prevents cache stampede on hot SKUs
	logger  zerolog.Logger
}

func NewPriceCache(catalog pricing.Catalog, client *redis.Client, baseTTL time.Duration, logger zerolog.Logger) *PriceCache {
	return &PriceCache{
		catalog: catalog,
		client:  client,
		baseTTL: baseTTL,
		logger:  logger.With().Str("component", "price_cache").Logger(),
	}
}

func (c *PriceCache) UnitPrice(ctx context.Context, storeID int64, sku string) (decimal.Decimal, error) {
	key := priceKey(storeID, sku)

	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		price, e2 := c.get(ctx, key)
		if e2 == nil {
			return price, nil
		}
		if !errors.Is(e2, ErrCacheMiss) {
			c.logger.Warn().Err(e2).Str("sku", sku).Msg("price cache read failed, falling back to catalog")
		}

		price, e2 = c.catalog.UnitPrice(ctx, storeID, sku)
		if e2 != nil {
			return decimal.Zero, e2
		}

		if e3 := c.set(ctx, key, price); e3 != nil {
			c.logger.Warn().Err(e3).Str("sku", sku).Msg("price cache write failed")
		}
		return price, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// TaxRate is not cached; it changes rarely but a stale rate is a compliance
// problem, not just a slow request.
func (c *PriceCache) TaxRate(ctx context.Context, storeID int64) (decimal.Decimal, error) {
	return c.catalog.TaxRate(ctx, storeID)
}

func (c *PriceCache) get(ctx context.Context, key string) (decimal.Decimal, error) {
	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, ErrCacheMiss
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis get failed: %w", err)
	}

	price, err := decimal.NewFromString(data)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse cached price: %w", err)
	}
	return price, nil
}

func (c *PriceCache) set(ctx context.Context, key string, price decimal.Decimal) error {
	jitter := time.Duration(rand.Intn(30)) * time.Second
	ttl := c.baseTTL + jitter
	if err := c.client.Set(ctx, key, price.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func priceKey(storeID int64, sku string) string {
	return fmt.Sprintf("price:%d:%s", storeID, sku)
}
