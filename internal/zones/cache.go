package zones

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-explore/internal/metrics"
)

// CacheConfig sizes the zone cache.
type CacheConfig struct {
	// Entries is the number of decoded collections kept in memory.
	Entries int
	// SizeMB bounds the encoded second tier. 0 disables it.
	SizeMB int
	TTL    time.Duration
}

// CachingFetcher memoizes successful fetches by Request.Key. Decoded
// collections live in an expiring LRU; their encoded form is kept in a
// larger byte cache and decoded again on a front-tier miss. Errors are
// never cached. Cached collections are shared and must not be mutated.
type CachingFetcher struct {
	next  Fetcher
	front *expirable.LRU[string, *geojson.FeatureCollection]
	back  *bigcache.BigCache
}

// NewCachingFetcher wraps next.
func NewCachingFetcher(next Fetcher, cfg CacheConfig) (*CachingFetcher, error) {
	if cfg.Entries <= 0 {
		cfg.Entries = 128
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	c := &CachingFetcher{
		next:  next,
		front: expirable.NewLRU[string, *geojson.FeatureCollection](cfg.Entries, nil, cfg.TTL),
	}
	if cfg.SizeMB > 0 {
		bc := bigcache.DefaultConfig(cfg.TTL)
		bc.HardMaxCacheSize = cfg.SizeMB
		bc.Shards = 64
		bc.Verbose = false
		back, err := bigcache.New(context.Background(), bc)
		if err != nil {
			return nil, fmt.Errorf("creating zone byte cache: %w", err)
		}
		c.back = back
	}
	return c, nil
}

// Fetch returns a cached collection or delegates to the wrapped fetcher.
func (c *CachingFetcher) Fetch(ctx context.Context, req Request) (*geojson.FeatureCollection, error) {
	key := req.Key()
	if fc, ok := c.front.Get(key); ok {
		metrics.ZoneCacheHitsTotal.Inc()
		return fc, nil
	}
	if fc, ok := c.fromBack(key); ok {
		metrics.ZoneCacheHitsTotal.Inc()
		c.front.Add(key, fc)
		return fc, nil
	}
	metrics.ZoneCacheMissesTotal.Inc()

	fc, err := c.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	c.front.Add(key, fc)
	if c.back != nil {
		if data, err := fc.MarshalJSON(); err == nil {
			_ = c.back.Set(key, data)
		}
	}
	return fc, nil
}

func (c *CachingFetcher) fromBack(key string) (*geojson.FeatureCollection, bool) {
	if c.back == nil {
		return nil, false
	}
	data, err := c.back.Get(key)
	if err != nil {
		return nil, false
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		_ = c.back.Delete(key)
		return nil, false
	}
	return fc, true
}

// Len returns the number of decoded entries.
func (c *CachingFetcher) Len() int { return c.front.Len() }

// Purge drops every entry.
func (c *CachingFetcher) Purge() {
	c.front.Purge()
	if c.back != nil {
		_ = c.back.Reset()
	}
}

// Close releases the byte cache.
func (c *CachingFetcher) Close() error {
	if c.back == nil {
		return nil
	}
	return c.back.Close()
}
