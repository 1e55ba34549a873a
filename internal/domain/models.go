package domain

import (
	"time"

	"github.com/google/uuid"
)

// CacheEntry is a stored model response keyed by (fingerprint, model).
// SavedTokens accumulates the tokens avoided by reusing this entry; it grows
// by TotalTokens on every cache hit and never decreases.
type CacheEntry struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Fingerprint      string    `db:"fingerprint" json:"fingerprint"`
	Model            string    `db:"model" json:"model"`
	Response         string    `db:"response" json:"response"`
	PromptTokens     int64     `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int64     `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int64     `db:"total_tokens" json:"total_tokens"`
	SavedTokens      int64     `db:"saved_tokens" json:"saved_tokens"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	LastAccessed     time.Time `db:"last_accessed" json:"last_accessed"`
}

// Invoice is the extracted header of a processed invoice document.
// The pair (VendorName, InvoiceNumber) is unique across the store.
// Monetary values are kept as strings exactly as extracted.
type Invoice struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ChatID        string    `db:"chat_id" json:"chat_id"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	VendorName    string    `db:"vendor_name" json:"vendor_name"`
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number"`
	InvoiceDate   time.Time `db:"invoice_date" json:"invoice_date"`
	DueDate       time.Time `db:"due_date" json:"due_date"`
	TotalAmount   string    `db:"total_amount" json:"total_amount"`
	Currency      string    `db:"currency" json:"currency"`
	FilePath      string    `db:"file_path" json:"file_path"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// InvoiceLineItem is a single line of an invoice, owned by it.
type InvoiceLineItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description string    `db:"description" json:"description"`
	Quantity    string    `db:"quantity" json:"quantity"`
	UnitPrice   string    `db:"unit_price" json:"unit_price"`
	Amount      string    `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TokenUsageRecord is the summed token cost of the model calls made while
// processing one invoice. Written once per successful run, immutable after.
type TokenUsageRecord struct {
	ID               uuid.UUID `db:"id" json:"id"`
	InvoiceID        uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Model            string    `db:"model" json:"model"`
	PromptTokens     int64     `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int64     `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int64     `db:"total_tokens" json:"total_tokens"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// TokenUsageStats aggregates TokenUsageRecord rows for reporting.
type TokenUsageStats struct {
	InvoiceCount        int64   `db:"invoice_count" json:"invoice_count"`
	AvgPromptTokens     float64 `db:"avg_prompt_tokens" json:"avg_prompt_tokens"`
	AvgCompletionTokens float64 `db:"avg_completion_tokens" json:"avg_completion_tokens"`
	AvgTotalTokens      float64 `db:"avg_total_tokens" json:"avg_total_tokens"`
	AvgCostPerInvoice   float64 `db:"-" json:"avg_cost_per_invoice"`
	CostPer1MTokens     float64 `db:"-" json:"cost_per_1m_tokens"`
}
