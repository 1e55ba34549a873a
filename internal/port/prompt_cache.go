package port

import (
	"context"
	"time"

	"invoflow/internal/domain"
)

// PromptCache is the durable store of model responses keyed by
// (fingerprint, model).
//
// Lookup returns domain.ErrNotFound on a miss. On a hit it atomically bumps
// last_accessed and adds the entry's total_tokens to saved_tokens; concurrent
// hits must not lose increments.
//
// Store inserts a fresh entry with saved_tokens = 0 and returns
// domain.ErrCacheConflict if the (fingerprint, model) pair already exists.
// Callers treat the conflict as benign: a concurrent run cached the same
// deterministic result first.
type PromptCache interface {
	Lookup(ctx context.Context, fingerprint, model string) (*domain.CacheEntry, error)
	Store(ctx context.Context, entry *domain.CacheEntry) error
	TotalSavings(ctx context.Context) (int64, error)
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}
