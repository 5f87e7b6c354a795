package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCatalog implements pricing.Catalog for testing
type MockCatalog struct {
	Price decimal.Decimal
	Rate  decimal.Decimal
	Err   error
	Calls int64
}

func (m *MockCatalog) UnitPrice(_ context.Context, _ int64, _ string) (decimal.Decimal, error) {
	atomic.AddInt64(&m.Calls, 1)
	if m.Err != nil {
		return decimal.Zero, m.Err
	}
	return m.Price, nil
}

func (m *MockCatalog) TaxRate(_ context.Context, _ int64) (decimal.Decimal, error) {
	return m.Rate, nil
}

func setupCache(t *testing.T, catalog *MockCatalog) (*PriceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPriceCache(catalog, client, time.Minute, zerolog.Nop()), mr
}

func TestUnitPrice_CacheMissFetchesAndStores(t *testing.T) {
	catalog := &MockCatalog{Price: decimal.RequireFromString("19.99")}
	cache, mr := setupCache(t, catalog)

	price, err := cache.UnitPrice(context.Background(), 1, "A")

	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), catalog.Calls)

	cached, err := mr.Get("price:1:A")
	require.NoError(t, err)
	assert.Equal(t, "19.99", cached)
}

func TestUnitPrice_CacheHitSkipsCatalog(t *testing.T) {
	catalog := &MockCatalog{Price: decimal.RequireFromString("19.99")}
	cache, mr := setupCache(t, catalog)

	require.NoError(t, mr.Set("price:1:A", "12.50"))

	price, err := cache.UnitPrice(context.Background(), 1, "A")

	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("12.50")))
	assert.Zero(t, catalog.Calls)
}

func TestUnitPrice_CorruptCacheEntryFallsBack(t *testing.T) {
	catalog := &MockCatalog{Price: decimal.RequireFromString("19.99")}
	cache, mr := setupCache(t, catalog)

	require.NoError(t, mr.Set("price:1:A", "not-a-price"))

	price, err := cache.UnitPrice(context.Background(), 1, "A")

	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), catalog.Calls)
}

func TestUnitPrice_RedisDownDegradesToCatalog(t *testing.T) {
	catalog := &MockCatalog{Price: decimal.RequireFromString("5.00")}
	cache, mr := setupCache(t, catalog)
	mr.Close()

	price, err := cache.UnitPrice(context.Background(), 1, "A")

	require.NoError(t, err, "cache outage must not fail pricing")
	assert.True(t, price.Equal(decimal.RequireFromString("5.00")))
}

func TestUnitPrice_CatalogErrorPropagates(t *testing.T) {
	catalog := &MockCatalog{Err: errors.New("catalog unavailable")}
	cache, _ := setupCache(t, catalog)

	_, err := cache.UnitPrice(context.Background(), 1, "A")

	assert.Error(t, err)
}

func TestUnitPrice_KeysAreStoreScoped(t *testing.T) {
	catalog := &MockCatalog{Price: decimal.RequireFromString("10.00")}
	cache, mr := setupCache(t, catalog)

	require.NoError(t, mr.Set("price:1:A", "7.00"))

	price, err := cache.UnitPrice(context.Background(), 2, "A")

	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("10.00")), "store 2 must not read store 1's price")
}

func TestTaxRate_NeverCached(t *testing.T) {
	catalog := &MockCatalog{Rate: decimal.RequireFromString("0.08")}
	cache, mr := setupCache(t, catalog)

	rate, err := cache.TaxRate(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.08")))
	assert.Empty(t, mr.Keys())
}
