package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"invoflow/internal/config"
	"invoflow/internal/domain"
	"invoflow/internal/port"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// InvoiceDetails bundles an invoice with its line items and token usage.
type InvoiceDetails struct {
	Invoice    *domain.Invoice          `json:"invoice"`
	LineItems  []domain.InvoiceLineItem `json:"line_items"`
	TokenUsage *domain.TokenUsageRecord `json:"token_usage,omitempty"`
}

// LineItemEdit is one line item in an invoice update. An ID with the "new-"
// prefix marks a line item to insert; any other ID updates an existing row.
type LineItemEdit struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

// UpdateInvoiceInput is the DTO for editing an invoice and its line items.
type UpdateInvoiceInput struct {
	InvoiceID     uuid.UUID      `json:"-"`
	CustomerName  string         `json:"customer_name"`
	VendorName    string         `json:"vendor_name"`
	InvoiceNumber string         `json:"invoice_number"`
	InvoiceDate   string         `json:"invoice_date"`
	DueDate       string         `json:"due_date"`
	TotalAmount   string         `json:"total_amount"`
	Currency      string         `json:"currency"`
	LineItems     []LineItemEdit `json:"line_items"`
}

// InvoiceService manages persisted invoices outside the extraction pipeline.
type InvoiceService interface {
	GetWithDetails(ctx context.Context, id uuid.UUID) (*InvoiceDetails, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Invoice, error)
	Update(ctx context.Context, input *UpdateInvoiceInput) (*InvoiceDetails, error)
	DownloadURL(ctx context.Context, id uuid.UUID) (string, error)
}

type invoiceService struct {
	invRepo port.InvoiceRepository
	storage port.ObjectStorage
	s3cfg   *config.S3Config
}

// NewInvoiceService creates a new InvoiceService implementation.
func NewInvoiceService(invRepo port.InvoiceRepository, storage port.ObjectStorage, s3cfg *config.S3Config) InvoiceService {
	return &invoiceService{invRepo: invRepo, storage: storage, s3cfg: s3cfg}
}

func (s *invoiceService) GetWithDetails(ctx context.Context, id uuid.UUID) (*InvoiceDetails, error) {
	inv, err := s.invRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.invRepo.ListLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &InvoiceDetails{Invoice: inv, LineItems: items}

	// An invoice created before usage tracking may have no record; that is
	// not an error.
	usage, err := s.invRepo.GetTokenUsage(ctx, id)
	if err == nil {
		details.TokenUsage = usage
	}

	return details, nil
}

func (s *invoiceService) ListRecent(ctx context.Context, limit int) ([]domain.Invoice, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.invRepo.ListRecent(ctx, limit)
}

func (s *invoiceService) Update(ctx context.Context, input *UpdateInvoiceInput) (*InvoiceDetails, error) {
	inv, err := s.invRepo.GetByID(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}

	invoiceDate, dueDate, err := parseInvoiceDates(&extractedInvoice{
		InvoiceDate: input.InvoiceDate,
		DueDate:     input.DueDate,
	})
	if err != nil {
		return nil, err
	}

	inv.CustomerName = input.CustomerName
	inv.VendorName = input.VendorName
	inv.InvoiceNumber = input.InvoiceNumber
	inv.InvoiceDate = invoiceDate
	inv.DueDate = dueDate
	inv.TotalAmount = input.TotalAmount
	if input.Currency != "" {
		inv.Currency = input.Currency
	}

	if err := s.invRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	for _, edit := range input.LineItems {
		if strings.HasPrefix(edit.ID, "new-") {
			item := &domain.InvoiceLineItem{
				ID:          uuid.New(),
				InvoiceID:   inv.ID,
				Description: edit.Description,
				Quantity:    edit.Quantity,
				UnitPrice:   edit.UnitPrice,
				Amount:      edit.Amount,
			}
			if err := s.invRepo.AddLineItem(ctx, item); err != nil {
				return nil, fmt.Errorf("adding line item: %w", err)
			}
			continue
		}

		itemID, err := uuid.Parse(edit.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid line item id %q: %w", edit.ID, err)
		}
		item := &domain.InvoiceLineItem{
			ID:          itemID,
			InvoiceID:   inv.ID,
			Description: edit.Description,
			Quantity:    edit.Quantity,
			UnitPrice:   edit.UnitPrice,
			Amount:      edit.Amount,
		}
		if err := s.invRepo.UpdateLineItem(ctx, item); err != nil {
			return nil, fmt.Errorf("updating line item %s: %w", itemID, err)
		}
	}

	return s.GetWithDetails(ctx, inv.ID)
}

func (s *invoiceService) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	inv, err := s.invRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if inv.FilePath == "" {
		return "", domain.ErrNotFound
	}
	return s.storage.GetPresignedURL(ctx, s.s3cfg.Bucket, inv.FilePath, s.s3cfg.PresignExpiry)
}
