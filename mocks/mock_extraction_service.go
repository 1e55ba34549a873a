package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoflow/internal/service"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) ProcessInvoice(ctx context.Context, input *service.ProcessInvoiceInput) (*service.ProcessInvoiceResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessInvoiceResult), args.Error(1)
}
