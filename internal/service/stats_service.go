package service

import (
	"context"

	"invoflow/internal/domain"
	"invoflow/internal/port"
)

// costPer1MTokens is the Gemini 1.5 Flash price used for cost projection.
// https://ai.google.dev/gemini-api/docs/pricing#gemini-1.5-flash
const costPer1MTokens = 0.075

// StatsService exposes read-only token accounting aggregations.
type StatsService interface {
	TokenUsage(ctx context.Context) (*domain.TokenUsageStats, error)
	TokenSavings(ctx context.Context) (int64, error)
}

type statsService struct {
	invRepo port.InvoiceRepository
	cache   port.PromptCache
}

// NewStatsService creates a new StatsService implementation.
func NewStatsService(invRepo port.InvoiceRepository, cache port.PromptCache) StatsService {
	return &statsService{invRepo: invRepo, cache: cache}
}

func (s *statsService) TokenUsage(ctx context.Context) (*domain.TokenUsageStats, error) {
	stats, err := s.invRepo.AverageTokenUsage(ctx)
	if err != nil {
		return nil, err
	}
	stats.CostPer1MTokens = costPer1MTokens
	stats.AvgCostPerInvoice = stats.AvgTotalTokens / 1_000_000 * costPer1MTokens
	return stats, nil
}

func (s *statsService) TokenSavings(ctx context.Context) (int64, error) {
	return s.cache.TotalSavings(ctx)
}
