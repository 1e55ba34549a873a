package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"invoflow/internal/domain"
)

// MockPromptCache is a mock implementation of port.PromptCache.
type MockPromptCache struct {
	mock.Mock
}

func (m *MockPromptCache) Lookup(ctx context.Context, fingerprint, model string) (*domain.CacheEntry, error) {
	args := m.Called(ctx, fingerprint, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CacheEntry), args.Error(1)
}

func (m *MockPromptCache) Store(ctx context.Context, entry *domain.CacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockPromptCache) TotalSavings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPromptCache) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}
