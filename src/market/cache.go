package market

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// entry is one cached quote with the TTL contract spec §6 describes: reads
// within TTL return the cached value, otherwise the cache pulls through to
// the underlying source.
type entry struct {
	price decimal.Decimal
	asOf  time.Time
}

// Source is the narrow pull-through capability the cache wraps.
type Source interface {
	LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// Cache is a TTL pull-through price cache sitting in front of a Provider,
// satisfying decision.PriceSource and risk.PriceSource itself so callers
// never talk to the venue adapter directly. A push feed (binance_stream.go)
// can also write into it directly via Put, letting the scheduler's
// price-refresh tick prefer a warm cache over a blocking REST round trip.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	source  Source
}

func NewCache(source Source, ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		source:  source,
	}
}

// Put records a fresh quote, used by the websocket push feed and by
// LatestPrices itself after a pull-through fetch.
func (c *Cache) Put(symbol string, price decimal.Decimal, asOf time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = entry{price: price, asOf: asOf}
}

func (c *Cache) LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(symbols))
	var misses []string

	now := time.Now()
	c.mu.RLock()
	for _, symbol := range symbols {
		if e, ok := c.entries[symbol]; ok && now.Sub(e.asOf) <= c.ttl {
			result[symbol] = e.price
			continue
		}
		misses = append(misses, symbol)
	}
	c.mu.RUnlock()

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := c.source.LatestPrices(ctx, misses)
	if err != nil {
		return nil, err
	}

	fetchedAt := time.Now()
	for symbol, price := range fetched {
		c.Put(symbol, price, fetchedAt)
		result[symbol] = price
	}
	return result, nil
}
