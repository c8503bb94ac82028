package application

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"finledger-service/internal/domain"
)

// Fetcher produces quotes for the symbols missing from the cache.
type Fetcher interface {
	FetchAll(ctx context.Context, symbols []domain.Symbol) map[domain.Symbol]domain.Quote
}

// QuoteCache holds the most recent quote per symbol. Entries have no
// individual expiry: a scheduled Clear evicts the whole cache so all entries
// are equally fresh or all absent. The first read after a clear incurs a full
// fetch for every requested symbol; that thundering herd is an accepted
// trade-off of the bulk TTL design.
type QuoteCache struct {
	mu      sync.RWMutex
	entries map[domain.Symbol]domain.Quote

	fetcher Fetcher
	log     *zap.Logger
}

func NewQuoteCache(fetcher Fetcher, log *zap.Logger) *QuoteCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuoteCache{
		entries: make(map[domain.Symbol]domain.Quote),
		fetcher: fetcher,
		log:     log,
	}
}

// Get returns the cached quote for symbol, if any.
func (c *QuoteCache) Get(symbol domain.Symbol) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.entries[symbol]
	return q, ok
}

// GetOrFetch returns cached quotes for every symbol currently held and
// delegates the rest to the fetch pipeline, merging successful results into
// the cache before returning. Symbols that could not be fetched are absent
// from the result; they are never negatively cached and will be retried on
// the next call.
func (c *QuoteCache) GetOrFetch(ctx context.Context, symbols []domain.Symbol) map[domain.Symbol]domain.Quote {
	out := make(map[domain.Symbol]domain.Quote, len(symbols))
	var missing []domain.Symbol

	c.mu.RLock()
	for _, s := range symbols {
		if q, ok := c.entries[s]; ok {
			out[s] = q
		} else {
			missing = append(missing, s)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out
	}

	fetched := c.fetcher.FetchAll(ctx, missing)
	if len(fetched) > 0 {
		// A Clear racing this merge just means fresh values populate an
		// already-cleared cache, which is consistent.
		c.mu.Lock()
		for s, q := range fetched {
			c.entries[s] = q
			out[s] = q
		}
		c.mu.Unlock()
	}
	c.log.Debug("cache.get_or_fetch",
		zap.Int("requested", len(symbols)),
		zap.Int("hits", len(symbols)-len(missing)),
		zap.Int("fetched", len(fetched)),
	)
	return out
}

// Clear evicts the entire cache atomically.
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[domain.Symbol]domain.Quote)
	c.mu.Unlock()
	c.log.Info("cache.cleared", zap.Int("evicted", n))
}

// Len reports the number of cached entries.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
