package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// CachedFetcher keeps recently fetched pages in memory so pagination walks and
// detail/index pages that share a URL are only requested once per run.
type CachedFetcher struct {
	next  Fetcher
	cache *bigcache.BigCache
}

func NewCachedFetcher(ctx context.Context, next Fetcher, ttl time.Duration) (*CachedFetcher, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16
	cfg.MaxEntrySize = 256 << 10
	cfg.HardMaxCacheSize = 128
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init page cache: %w", err)
	}

	return &CachedFetcher{next: next, cache: c}, nil
}

func (f *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if b, err := f.cache.Get(url); err == nil {
		return b, nil
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, fmt.Errorf("page cache: %w", err)
	}

	b, err := f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	_ = f.cache.Set(url, b)
	return b, nil
}

func (f *CachedFetcher) Close() error {
	return f.cache.Close()
}
