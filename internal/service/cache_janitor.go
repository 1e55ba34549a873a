package service

import (
	"context"
	"log"
	"time"

	"invoflow/internal/port"
)

// CacheJanitorConfig holds settings for the cache cleanup loop.
type CacheJanitorConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// CacheJanitor periodically purges cache entries whose last access is older
// than the retention window. It runs independently of pipeline requests;
// purge errors are logged and swallowed, cleanup is best-effort.
type CacheJanitor struct {
	cache port.PromptCache
	cfg   CacheJanitorConfig
}

// NewCacheJanitor creates a new CacheJanitor.
func NewCacheJanitor(cache port.PromptCache, cfg CacheJanitorConfig) *CacheJanitor {
	return &CacheJanitor{cache: cache, cfg: cfg}
}

// Start runs the cleanup loop until ctx is canceled. The first purge happens
// after one full interval, not at startup.
func (j *CacheJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	log.Printf("cacheJanitor: started (interval=%s, maxAge=%s)", j.cfg.Interval, j.cfg.MaxAge)

	for {
		select {
		case <-ctx.Done():
			log.Printf("cacheJanitor: shutting down")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass and returns the number of entries
// removed. Storage errors are logged and reported as zero removals.
func (j *CacheJanitor) RunOnce(ctx context.Context) int64 {
	removed, err := j.cache.PurgeOlderThan(ctx, j.cfg.MaxAge)
	if err != nil {
		log.Printf("cacheJanitor: purge failed: %v", err)
		return 0
	}
	if removed > 0 {
		log.Printf("cacheJanitor: purged %d stale cache entries", removed)
	}
	return removed
}
