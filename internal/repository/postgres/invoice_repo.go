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

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

// CreateWithItems inserts the invoice header, its line items, and the run's
// token-usage record inside one transaction. The unique index on
// (vendor_name, invoice_number) is the sole duplicate arbiter: on a
// violation the already-persisted invoice is fetched and returned inside
// *domain.DuplicateInvoiceError, and nothing from this run is left behind.
func (r *invoiceRepo) CreateWithItems(ctx context.Context, inv *domain.Invoice, items []domain.InvoiceLineItem, usage *domain.TokenUsageRecord) error {
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invoiceRepo.CreateWithItems begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO invoices (
			id, chat_id, customer_name, vendor_name, invoice_number,
			invoice_date, due_date, total_amount, currency, file_path,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inv.ID, inv.ChatID, inv.CustomerName, inv.VendorName, inv.InvoiceNumber,
		inv.InvoiceDate, inv.DueDate, inv.TotalAmount, inv.Currency, inv.FilePath,
		inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return r.duplicateError(ctx, inv.VendorName, inv.InvoiceNumber, err)
		}
		return fmt.Errorf("invoiceRepo.CreateWithItems invoice: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.InvoiceID = inv.ID
		item.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO invoice_line_items (
				id, invoice_id, description, quantity, unit_price, amount, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.InvoiceID, item.Description, item.Quantity,
			item.UnitPrice, item.Amount, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("invoiceRepo.CreateWithItems line item: %w", err)
		}
	}

	usage.InvoiceID = inv.ID
	usage.CreatedAt = now
	_, err = tx.ExecContext(ctx,
		`INSERT INTO token_usage (
			id, invoice_id, model, prompt_tokens, completion_tokens, total_tokens, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		usage.ID, usage.InvoiceID, usage.Model,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, usage.CreatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.CreateWithItems token usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return r.duplicateError(ctx, inv.VendorName, inv.InvoiceNumber, err)
		}
		return fmt.Errorf("invoiceRepo.CreateWithItems commit: %w", err)
	}
	return nil
}

// duplicateError fetches the invoice holding the natural key so the caller
// can echo its details. If the winning row cannot be read back, the original
// constraint error is surfaced instead.
func (r *invoiceRepo) duplicateError(ctx context.Context, vendorName, invoiceNumber string, cause error) error {
	existing, err := r.GetByNaturalKey(ctx, vendorName, invoiceNumber)
	if err != nil {
		return fmt.Errorf("invoiceRepo.CreateWithItems duplicate (existing row unreadable): %w", cause)
	}
	return &domain.DuplicateInvoiceError{Existing: existing}
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) GetByNaturalKey(ctx context.Context, vendorName, invoiceNumber string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv,
		"SELECT * FROM invoices WHERE vendor_name = $1 AND invoice_number = $2",
		vendorName, invoiceNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByNaturalKey: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) ListRecent(ctx context.Context, limit int) ([]domain.Invoice, error) {
	var invs []domain.Invoice
	err := r.db.SelectContext(ctx, &invs,
		"SELECT * FROM invoices ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListRecent: %w", err)
	}
	return invs, nil
}

func (r *invoiceRepo) ListLineItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceLineItem, error) {
	var items []domain.InvoiceLineItem
	err := r.db.SelectContext(ctx, &items,
		"SELECT * FROM invoice_line_items WHERE invoice_id = $1 ORDER BY created_at",
		invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListLineItems: %w", err)
	}
	return items, nil
}

func (r *invoiceRepo) GetTokenUsage(ctx context.Context, invoiceID uuid.UUID) (*domain.TokenUsageRecord, error) {
	var usage domain.TokenUsageRecord
	err := r.db.GetContext(ctx, &usage,
		"SELECT * FROM token_usage WHERE invoice_id = $1", invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetTokenUsage: %w", err)
	}
	return &usage, nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET
			customer_name = $1, vendor_name = $2, invoice_number = $3,
			invoice_date = $4, due_date = $5, total_amount = $6,
			currency = $7, updated_at = $8
		 WHERE id = $9`,
		inv.CustomerName, inv.VendorName, inv.InvoiceNumber,
		inv.InvoiceDate, inv.DueDate, inv.TotalAmount,
		inv.Currency, inv.UpdatedAt, inv.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return r.duplicateError(ctx, inv.VendorName, inv.InvoiceNumber, err)
		}
		return fmt.Errorf("invoiceRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *invoiceRepo) UpdateLineItem(ctx context.Context, item *domain.InvoiceLineItem) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoice_line_items SET
			description = $1, quantity = $2, unit_price = $3, amount = $4
		 WHERE id = $5 AND invoice_id = $6`,
		item.Description, item.Quantity, item.UnitPrice, item.Amount,
		item.ID, item.InvoiceID)
	if err != nil {
		return fmt.Errorf("invoiceRepo.UpdateLineItem: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *invoiceRepo) AddLineItem(ctx context.Context, item *domain.InvoiceLineItem) error {
	item.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoice_line_items (
			id, invoice_id, description, quantity, unit_price, amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.InvoiceID, item.Description, item.Quantity,
		item.UnitPrice, item.Amount, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.AddLineItem: %w", err)
	}
	return nil
}

const avgTokenUsageQuery = `SELECT
	COUNT(*) AS invoice_count,
	COALESCE(AVG(prompt_tokens), 0) AS avg_prompt_tokens,
	COALESCE(AVG(completion_tokens), 0) AS avg_completion_tokens,
	COALESCE(AVG(total_tokens), 0) AS avg_total_tokens
FROM token_usage`

func (r *invoiceRepo) AverageTokenUsage(ctx context.Context) (*domain.TokenUsageStats, error) {
	var stats domain.TokenUsageStats
	if err := r.db.GetContext(ctx, &stats, avgTokenUsageQuery); err != nil {
		return nil, fmt.Errorf("invoiceRepo.AverageTokenUsage: %w", err)
	}
	return &stats, nil
}
