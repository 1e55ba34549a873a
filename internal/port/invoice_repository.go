package port

import (
	"context"

	"github.com/google/uuid"

	"invoflow/internal/domain"
)

// InvoiceRepository persists invoices together with their line items and
// token-usage record.
//
// CreateWithItems writes the invoice header, its line items, and the run's
// token-usage record in a single transaction; either all rows land or none.
// When the (vendor_name, invoice_number) natural key is already taken it
// returns *domain.DuplicateInvoiceError carrying the existing invoice.
type InvoiceRepository interface {
	CreateWithItems(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceLineItem, usage *domain.TokenUsageRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	GetByNaturalKey(ctx context.Context, vendorName, invoiceNumber string) (*domain.Invoice, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Invoice, error)
	ListLineItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceLineItem, error)
	GetTokenUsage(ctx context.Context, invoiceID uuid.UUID) (*domain.TokenUsageRecord, error)
	Update(ctx context.Context, inv *domain.Invoice) error
	UpdateLineItem(ctx context.Context, item *domain.InvoiceLineItem) error
	AddLineItem(ctx context.Context, item *domain.InvoiceLineItem) error
	AverageTokenUsage(ctx context.Context) (*domain.TokenUsageStats, error)
}
