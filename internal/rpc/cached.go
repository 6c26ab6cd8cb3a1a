package rpc

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"chainview/internal/cache"
)

const (
	keyDynamicGlobals = "dynamic_global_properties"
	keyFeedHistory    = "feed_history"
	keyRewardFund     = "reward_fund:"
)

// GlobalsSource is the uncached provider of chain-wide reference data.
type GlobalsSource interface {
	GetDynamicGlobalProperties(ctx context.Context) (DynamicGlobalProperties, error)
	GetFeedHistory(ctx context.Context) (FeedHistory, error)
	GetRewardFund(ctx context.Context, name string) (RewardFund, error)
}

// CachedGlobals serves chain-wide reference data from a short-lived cache.
// Concurrent misses for the same value share a single node call.
type CachedGlobals struct {
	source GlobalsSource
	cache  *cache.LRUCache[any]
	group  singleflight.Group
}

// NewCachedGlobals caches values from source for ttl.
func NewCachedGlobals(source GlobalsSource, size int, ttl time.Duration) *CachedGlobals {
	return &CachedGlobals{
		source: source,
		cache:  cache.NewLRUCache[any](size, ttl),
	}
}

// Cache exposes the underlying cache so it can be registered for sweeping.
func (g *CachedGlobals) Cache() *cache.LRUCache[any] {
	return g.cache
}

func (g *CachedGlobals) GetDynamicGlobalProperties(ctx context.Context) (DynamicGlobalProperties, error) {
	return cached(ctx, g, keyDynamicGlobals, g.source.GetDynamicGlobalProperties)
}

func (g *CachedGlobals) GetFeedHistory(ctx context.Context) (FeedHistory, error) {
	return cached(ctx, g, keyFeedHistory, g.source.GetFeedHistory)
}

func (g *CachedGlobals) GetRewardFund(ctx context.Context, name string) (RewardFund, error) {
	return cached(ctx, g, keyRewardFund+name, func(ctx context.Context) (RewardFund, error) {
		return g.source.GetRewardFund(ctx, name)
	})
}

// cached returns the value under key, fetching it once for all concurrent
// callers on a miss. The shared fetch is detached from any single caller's
// cancellation; a caller whose context ends stops waiting.
func cached[T any](ctx context.Context, g *CachedGlobals, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := g.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	ch := g.group.DoChan(key, func() (any, error) {
		t, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		g.cache.Set(key, t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
