package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"invoflow/internal/domain"
	"invoflow/internal/service"
	"invoflow/mocks"
)

func TestTokenUsage_FillsCostProjection(t *testing.T) {
	invRepo := new(mocks.MockInvoiceRepo)
	cache := new(mocks.MockPromptCache)
	svc := service.NewStatsService(invRepo, cache)

	invRepo.On("AverageTokenUsage", mock.Anything).Return(&domain.TokenUsageStats{
		InvoiceCount:        40,
		AvgPromptTokens:     1200,
		AvgCompletionTokens: 300,
		AvgTotalTokens:      1500,
	}, nil)

	stats, err := svc.TokenUsage(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0.075, stats.CostPer1MTokens)
	assert.InDelta(t, 1500.0/1_000_000*0.075, stats.AvgCostPerInvoice, 1e-12)
}

func TestTokenUsage_RepoError(t *testing.T) {
	invRepo := new(mocks.MockInvoiceRepo)
	cache := new(mocks.MockPromptCache)
	svc := service.NewStatsService(invRepo, cache)

	invRepo.On("AverageTokenUsage", mock.Anything).Return(nil, assert.AnError)

	_, err := svc.TokenUsage(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
}

func TestTokenSavings(t *testing.T) {
	invRepo := new(mocks.MockInvoiceRepo)
	cache := new(mocks.MockPromptCache)
	svc := service.NewStatsService(invRepo, cache)

	cache.On("TotalSavings", mock.Anything).Return(int64(12345), nil)

	saved, err := svc.TokenSavings(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(12345), saved)
}
