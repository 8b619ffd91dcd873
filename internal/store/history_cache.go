package store

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/Tyrowin/gochat-relay/internal/relay"
)

// DefaultHistoryCacheTTL is used when NewCachedHistory gets no TTL.
const DefaultHistoryCacheTTL = 5 * time.Second

// historyFetchTimeout bounds a shared load. It runs detached from the
// requester that started it so one cancelled caller does not fail the rest.
const historyFetchTimeout = 5 * time.Second

// CachedHistory keeps recent history results in memory for a short TTL.
// Concurrent misses for the same limit share a single query, which matters
// when many clients reconnect at once.
type CachedHistory struct {
	source relay.HistorySource
	cache  *cache.Cache
	group  singleflight.Group
	ttl    time.Duration
}

var _ relay.HistorySource = (*CachedHistory)(nil)

// NewCachedHistory wraps source with a cache of the given TTL. Non-positive
// TTLs use DefaultHistoryCacheTTL.
func NewCachedHistory(source relay.HistorySource, ttl time.Duration) *CachedHistory {
	if ttl <= 0 {
		ttl = DefaultHistoryCacheTTL
	}
	return &CachedHistory{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
	}
}

// RecentHistory implements relay.HistorySource.
func (c *CachedHistory) RecentHistory(ctx context.Context, limit int) ([]relay.HistoryItem, error) {
	key := strconv.Itoa(limit)
	if items, ok := c.lookup(key); ok {
		return items, nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if items, ok := c.lookup(key); ok {
			return items, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyFetchTimeout)
		defer cancel()
		items, err := c.source.RecentHistory(fetchCtx, limit)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, items, c.ttl)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	items, _ := val.([]relay.HistoryItem)
	return items, nil
}

// Invalidate drops every cached result.
func (c *CachedHistory) Invalidate() {
	c.cache.Flush()
}

func (c *CachedHistory) lookup(key string) ([]relay.HistoryItem, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	items, ok := val.([]relay.HistoryItem)
	return items, ok
}
