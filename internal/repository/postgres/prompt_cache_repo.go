package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invoflow/internal/domain"
	"invoflow/internal/port"
)

type promptCacheRepo struct {
	db *sqlx.DB
}

// NewPromptCacheRepo creates a new PostgreSQL-backed PromptCache.
func NewPromptCacheRepo(db *sqlx.DB) port.PromptCache {
	return &promptCacheRepo{db: db}
}

// Lookup returns the entry for (fingerprint, model) and records the hit.
// The UPDATE bumps last_accessed and saved_tokens in one statement, so
// concurrent hits serialize on the row and no increment is lost. A miss
// returns domain.ErrNotFound.
func (r *promptCacheRepo) Lookup(ctx context.Context, fingerprint, model string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := r.db.GetContext(ctx, &entry,
		`UPDATE prompt_cache
		 SET last_accessed = $1, saved_tokens = saved_tokens + total_tokens
		 WHERE fingerprint = $2 AND model = $3
		 RETURNING *`,
		time.Now().UTC(), fingerprint, model)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("promptCacheRepo.Lookup: %w", err)
	}
	return &entry, nil
}

func (r *promptCacheRepo) Store(ctx context.Context, entry *domain.CacheEntry) error {
	now := time.Now().UTC()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.SavedTokens = 0
	entry.CreatedAt = now
	entry.LastAccessed = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prompt_cache (
			id, fingerprint, model, response,
			prompt_tokens, completion_tokens, total_tokens,
			saved_tokens, created_at, last_accessed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.Fingerprint, entry.Model, entry.Response,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens,
		entry.SavedTokens, entry.CreatedAt, entry.LastAccessed)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrCacheConflict
		}
		return fmt.Errorf("promptCacheRepo.Store: %w", err)
	}
	return nil
}

func (r *promptCacheRepo) TotalSavings(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(saved_tokens), 0) FROM prompt_cache")
	if err != nil {
		return 0, fmt.Errorf("promptCacheRepo.TotalSavings: %w", err)
	}
	return total, nil
}

func (r *promptCacheRepo) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM prompt_cache WHERE last_accessed < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("promptCacheRepo.PurgeOlderThan: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
