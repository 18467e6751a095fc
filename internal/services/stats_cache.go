package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"finances/internal/cache"
	"finances/internal/core"
	"finances/internal/storage"
)

// Versioner reports a counter that advances on every committed write.
type Versioner interface {
	Version() uint64
}

type versioned[T any] struct {
	version uint64
	value   T
}

// CachedAggregator memoizes statistics until the next write. Entries are
// tagged with the change version read before the query ran, so a write
// landing mid-query invalidates the result instead of being masked by it.
type CachedAggregator struct {
	next    Aggregator
	changes Versioner

	shares    *cache.LRU[versioned[[]core.CategoryStat]]
	periods   *cache.LRU[versioned[[]core.PeriodStat]]
	years     *cache.LRU[versioned[[]int]]
	summaries *cache.LRU[versioned[core.StatsSummary]]
}

func NewCachedAggregator(next Aggregator, changes Versioner, size int, ttl time.Duration) *CachedAggregator {
	return &CachedAggregator{
		next:      next,
		changes:   changes,
		shares:    cache.NewLRU[versioned[[]core.CategoryStat]](size, ttl),
		periods:   cache.NewLRU[versioned[[]core.PeriodStat]](size, ttl),
		years:     cache.NewLRU[versioned[[]int]](1, ttl),
		summaries: cache.NewLRU[versioned[core.StatsSummary]](size, ttl),
	}
}

// Register hands the underlying caches to m for expiry sweeps.
func (c *CachedAggregator) Register(m *cache.Manager) {
	m.Register(c.shares)
	m.Register(c.periods)
	m.Register(c.years)
	m.Register(c.summaries)
}

// Metrics sums lookups across the underlying caches.
func (c *CachedAggregator) Metrics() cache.Metrics {
	var total cache.Metrics
	for _, m := range []cache.Metrics{
		c.shares.GetMetrics(),
		c.periods.GetMetrics(),
		c.years.GetMetrics(),
		c.summaries.GetMetrics(),
	} {
		total.Hits += m.Hits
		total.Misses += m.Misses
		total.Evictions += m.Evictions
		total.Size += m.Size
	}
	return total
}

func (c *CachedAggregator) CategoryTotals(ctx context.Context, kind core.Kind, w *core.Window) ([]core.CategoryStat, error) {
	key := "categories:" + string(kind) + ":" + windowKey(w)
	stats, err := lookup(c, c.shares, key, func() ([]core.CategoryStat, error) {
		return c.next.CategoryTotals(ctx, kind, w)
	})
	return slices.Clone(stats), err
}

func (c *CachedAggregator) MonthlyTotals(ctx context.Context, q storage.MonthlyQuery) ([]core.PeriodStat, error) {
	key := fmt.Sprintf("monthly:%d:%s:%s", q.Year, windowKey(q.Window), q.Order)
	stats, err := lookup(c, c.periods, key, func() ([]core.PeriodStat, error) {
		return c.next.MonthlyTotals(ctx, q)
	})
	return slices.Clone(stats), err
}

func (c *CachedAggregator) WeeklyTotals(ctx context.Context, w core.Window) ([]core.PeriodStat, error) {
	key := "weekly:" + w.String()
	stats, err := lookup(c, c.periods, key, func() ([]core.PeriodStat, error) {
		return c.next.WeeklyTotals(ctx, w)
	})
	return slices.Clone(stats), err
}

func (c *CachedAggregator) AvailableYears(ctx context.Context) ([]int, error) {
	years, err := lookup(c, c.years, "years", func() ([]int, error) {
		return c.next.AvailableYears(ctx)
	})
	return slices.Clone(years), err
}

func (c *CachedAggregator) StatsSummary(ctx context.Context, w core.Window) (core.StatsSummary, error) {
	return lookup(c, c.summaries, "summary:"+w.String(), func() (core.StatsSummary, error) {
		return c.next.StatsSummary(ctx, w)
	})
}

func lookup[T any](c *CachedAggregator, lru *cache.LRU[versioned[T]], key string, fill func() (T, error)) (T, error) {
	version := c.changes.Version()
	if hit, ok := lru.Get(key); ok && hit.version == version {
		return hit.value, nil
	}

	value, err := fill()
	if err != nil {
		return value, err
	}
	lru.Set(key, versioned[T]{version: version, value: value})
	return value, nil
}

func windowKey(w *core.Window) string {
	if w == nil {
		return "all"
	}
	return w.String()
}
