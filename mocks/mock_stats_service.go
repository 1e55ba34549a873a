package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoflow/internal/domain"
)

// MockStatsService is a mock implementation of service.StatsService.
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) TokenUsage(ctx context.Context) (*domain.TokenUsageStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenUsageStats), args.Error(1)
}

func (m *MockStatsService) TokenSavings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
