package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/models"
)

type countingProvider struct {
	calls int
	stats models.ChannelStats
	err   error
}

func (p *countingProvider) ChannelStats(context.Context, string) (models.ChannelStats, error) {
	p.calls++
	if p.err != nil {
		return models.ChannelStats{}, p.err
	}
	return p.stats, nil
}

func TestCachingStatsProviderServesFromCache(t *testing.T) {
	base := &countingProvider{stats: models.ChannelStats{TotalViews: 42, TotalVideos: 3}}
	cache := NewCachingStatsProvider(base, time.Minute)

	ctx := context.Background()

	first, err := cache.ChannelStats(ctx, "channel-1")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := cache.ChannelStats(ctx, "channel-1")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	if first != base.stats || second != base.stats {
		t.Fatalf("unexpected stats: %+v / %+v", first, second)
	}
	if base.calls != 1 {
		t.Fatalf("expected a single delegate call, got %d", base.calls)
	}
}

func TestCachingStatsProviderKeysByChannel(t *testing.T) {
	base := &countingProvider{stats: models.ChannelStats{TotalVideos: 1}}
	cache := NewCachingStatsProvider(base, time.Minute)

	ctx := context.Background()
	if _, err := cache.ChannelStats(ctx, "channel-1"); err != nil {
		t.Fatalf("load channel-1: %v", err)
	}
	if _, err := cache.ChannelStats(ctx, "channel-2"); err != nil {
		t.Fatalf("load channel-2: %v", err)
	}

	if base.calls != 2 {
		t.Fatalf("expected one delegate call per channel, got %d", base.calls)
	}
}

func TestCachingStatsProviderExpires(t *testing.T) {
	base := &countingProvider{stats: models.ChannelStats{TotalLikes: 7}}
	cache := NewCachingStatsProvider(base, time.Millisecond)

	ctx := context.Background()
	if _, err := cache.ChannelStats(ctx, "channel-1"); err != nil {
		t.Fatalf("first load: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := cache.ChannelStats(ctx, "channel-1"); err != nil {
		t.Fatalf("reload after expiry: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected the expired entry to be refreshed, got %d calls", base.calls)
	}
}

func TestCachingStatsProviderDoesNotCacheErrors(t *testing.T) {
	base := &countingProvider{err: errors.New("db down")}
	cache := NewCachingStatsProvider(base, time.Minute)

	ctx := context.Background()
	if _, err := cache.ChannelStats(ctx, "channel-1"); err == nil {
		t.Fatal("expected error from delegate")
	}

	base.err = nil
	base.stats = models.ChannelStats{TotalSubscribers: 9}

	stats, err := cache.ChannelStats(ctx, "channel-1")
	if err != nil {
		t.Fatalf("load after recovery: %v", err)
	}
	if stats.TotalSubscribers != 9 {
		t.Fatalf("expected fresh stats after recovery, got %+v", stats)
	}
	if base.calls != 2 {
		t.Fatalf("expected the failure to stay uncached, got %d calls", base.calls)
	}
}
