package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// StatsProvider resolves a channel's aggregated dashboard numbers.
type StatsProvider interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

type cacheEntry struct {
	stats   models.ChannelStats
	expires time.Time
}

// CachingStatsProvider wraps another StatsProvider with a TTL-based
// in-memory cache keyed by channel. Dashboard numbers tolerate short
// staleness, so repeated loads of the same dashboard skip the aggregate
// query.
type CachingStatsProvider struct {
	base StatsProvider
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingStatsProvider returns a StatsProvider that caches per-channel
// stats for the provided TTL.
func NewCachingStatsProvider(base StatsProvider, ttl time.Duration) *CachingStatsProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingStatsProvider{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// ChannelStats returns cached stats when fresh, otherwise it delegates to
// the underlying provider and stores the result.
func (c *CachingStatsProvider) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[ownerID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.stats, nil
	}

	stats, err := c.base.ChannelStats(ctx, ownerID)
	if err != nil {
		return models.ChannelStats{}, err
	}

	c.mu.Lock()
	c.items[ownerID] = cacheEntry{stats: stats, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return stats, nil
}
