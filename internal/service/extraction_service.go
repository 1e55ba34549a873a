package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoflow/internal/config"
	"invoflow/internal/domain"
	"invoflow/internal/fingerprint"
	"invoflow/internal/modelclient"
	"invoflow/internal/port"
)

// ProcessInvoiceInput carries one uploaded document through the pipeline.
type ProcessInvoiceInput struct {
	ChatID      string
	FileName    string
	ContentType string
	FileBytes   []byte
}

// ProcessInvoiceResult is returned on a successful pipeline run.
type ProcessInvoiceResult struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Message   string          `json:"message"`
	Usage     port.TokenUsage `json:"-"`
}

// ExtractionService runs the classify -> extract -> parse -> persist pipeline.
type ExtractionService interface {
	ProcessInvoice(ctx context.Context, input *ProcessInvoiceInput) (*ProcessInvoiceResult, error)
}

type extractionService struct {
	cache   port.PromptCache
	model   port.ModelClient
	invRepo port.InvoiceRepository
	storage port.ObjectStorage
	s3cfg   *config.S3Config
}

// NewExtractionService creates a new ExtractionService implementation.
func NewExtractionService(
	cache port.PromptCache,
	model port.ModelClient,
	invRepo port.InvoiceRepository,
	storage port.ObjectStorage,
	s3cfg *config.S3Config,
) ExtractionService {
	return &extractionService{
		cache:   cache,
		model:   model,
		invRepo: invRepo,
		storage: storage,
		s3cfg:   s3cfg,
	}
}

// extractedInvoice mirrors the JSON shape requested by the extraction prompt.
type extractedInvoice struct {
	CustomerName  string `json:"customerName"`
	VendorName    string `json:"vendorName"`
	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate"`
	DueDate       string `json:"dueDate"`
	TotalAmount   string `json:"totalAmount"`
	Currency      string `json:"currency"`
	LineItems     []struct {
		Description string `json:"description"`
		Quantity    string `json:"quantity"`
		UnitPrice   string `json:"unitPrice"`
		Amount      string `json:"amount"`
	} `json:"lineItems"`
}

// ProcessInvoice runs one document through the pipeline. Classification and
// extraction are strictly sequential; each consults the cache before calling
// the model and writes fresh responses through. Token usage for the run is
// the sum of both calls' recorded counts, whether cached or live.
func (s *extractionService) ProcessInvoice(ctx context.Context, input *ProcessInvoiceInput) (*ProcessInvoiceResult, error) {
	if len(input.FileBytes) == 0 {
		return nil, domain.ErrNoAttachment
	}

	classifyText, classifyUsage, err := s.cachedInvoke(ctx, modelclient.ClassificationPrompt, input)
	if err != nil {
		return nil, fmt.Errorf("classification call: %w", err)
	}

	// Anything other than a bare "yes" (after trimming and case-folding) is a
	// rejection, regardless of what else the model said.
	if strings.ToLower(strings.TrimSpace(classifyText)) != "yes" {
		log.Printf("extractionService.ProcessInvoice: classification rejected %q: %q",
			input.FileName, truncate(classifyText, 120))
		return nil, domain.ErrNotAnInvoice
	}

	extractText, extractUsage, err := s.cachedInvoke(ctx, modelclient.ExtractionPrompt, input)
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	data, err := parseExtractedInvoice(extractText)
	if err != nil {
		log.Printf("extractionService.ProcessInvoice: parse failed for %q: %v", input.FileName, err)
		return nil, err
	}

	invoiceDate, dueDate, err := parseInvoiceDates(data)
	if err != nil {
		return nil, err
	}

	invoiceID := uuid.New()

	filePath, err := s.uploadSourceFile(ctx, invoiceID, input)
	if err != nil {
		return nil, fmt.Errorf("storing source file: %w", err)
	}

	currency := data.Currency
	if currency == "" {
		currency = "USD"
	}

	inv := &domain.Invoice{
		ID:            invoiceID,
		ChatID:        input.ChatID,
		CustomerName:  data.CustomerName,
		VendorName:    data.VendorName,
		InvoiceNumber: data.InvoiceNumber,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		TotalAmount:   data.TotalAmount,
		Currency:      currency,
		FilePath:      filePath,
	}

	items := make([]domain.InvoiceLineItem, 0, len(data.LineItems))
	for _, li := range data.LineItems {
		quantity := li.Quantity
		if quantity == "" {
			quantity = "1"
		}
		items = append(items, domain.InvoiceLineItem{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			Description: li.Description,
			Quantity:    quantity,
			UnitPrice:   li.UnitPrice,
			Amount:      li.Amount,
		})
	}

	totalUsage := classifyUsage.Add(extractUsage)
	usage := &domain.TokenUsageRecord{
		ID:               uuid.New(),
		InvoiceID:        invoiceID,
		Model:            s.model.Model(),
		PromptTokens:     totalUsage.PromptTokens,
		CompletionTokens: totalUsage.CompletionTokens,
		TotalTokens:      totalUsage.TotalTokens,
	}

	if err := s.invRepo.CreateWithItems(ctx, inv, items, usage); err != nil {
		var dup *domain.DuplicateInvoiceError
		if errors.As(err, &dup) {
			log.Printf("extractionService.ProcessInvoice: duplicate invoice %s/%s, existing %s",
				inv.VendorName, inv.InvoiceNumber, dup.Existing.ID)
			return nil, dup
		}
		log.Printf("extractionService.ProcessInvoice: persistence failed for %q: %v", input.FileName, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	log.Printf("extractionService.ProcessInvoice: invoice %s persisted (%s/%s, %d line items, %d tokens)",
		invoiceID, inv.VendorName, inv.InvoiceNumber, len(items), totalUsage.TotalTokens)

	return &ProcessInvoiceResult{
		InvoiceID: invoiceID,
		Message: fmt.Sprintf(
			"Invoice processed successfully. Invoice Number: %s, Vendor: %s, Amount: %s %s",
			inv.InvoiceNumber, inv.VendorName, inv.TotalAmount, inv.Currency),
		Usage: totalUsage,
	}, nil
}

// cachedInvoke looks up the (prompt, file) fingerprint in the cache and only
// calls the model on a miss, writing the fresh response through afterwards.
// A lost store race (another run cached the same deterministic result first)
// is benign: this run proceeds with its own freshly computed response.
func (s *extractionService) cachedInvoke(ctx context.Context, prompt string, input *ProcessInvoiceInput) (string, port.TokenUsage, error) {
	fp := fingerprint.Build(prompt, input.FileBytes)
	model := s.model.Model()

	entry, err := s.cache.Lookup(ctx, fp, model)
	if err == nil {
		log.Printf("extractionService.cachedInvoke: cache hit for %s/%s (saved %d tokens)",
			truncate(fp, 12), model, entry.TotalTokens)
		return entry.Response, port.TokenUsage{
			PromptTokens:     entry.PromptTokens,
			CompletionTokens: entry.CompletionTokens,
			TotalTokens:      entry.TotalTokens,
		}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		// A broken cache read degrades to a miss rather than failing the run.
		log.Printf("extractionService.cachedInvoke: cache lookup failed, treating as miss: %v", err)
	}

	out, err := s.model.Invoke(ctx, port.InvokeInput{
		Prompt:      prompt,
		FileBytes:   input.FileBytes,
		ContentType: input.ContentType,
	})
	if err != nil {
		return "", port.TokenUsage{}, err
	}

	storeErr := s.cache.Store(ctx, &domain.CacheEntry{
		Fingerprint:      fp,
		Model:            model,
		Response:         out.Text,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		TotalTokens:      out.Usage.TotalTokens,
	})
	if storeErr != nil {
		if errors.Is(storeErr, domain.ErrCacheConflict) {
			log.Printf("extractionService.cachedInvoke: entry %s/%s cached by a concurrent run",
				truncate(fp, 12), model)
		} else {
			return "", port.TokenUsage{}, fmt.Errorf("caching model response: %w", storeErr)
		}
	}

	return out.Text, out.Usage, nil
}

// uploadSourceFile stores the raw document in object storage and returns the
// object key recorded as the invoice's file path.
func (s *extractionService) uploadSourceFile(ctx context.Context, invoiceID uuid.UUID, input *ProcessInvoiceInput) (string, error) {
	key := fmt.Sprintf("invoices/%s/%s", invoiceID, input.FileName)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(input.FileBytes),
		ContentType: input.ContentType,
		Size:        int64(len(input.FileBytes)),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// parseExtractedInvoice takes the substring from the first '{' to the last
// '}' and decodes it. The bracket scan matches how responses usually wrap
// the JSON in prose; when it grabs the wrong substring the resulting
// ErrExtractionParse is an expected outcome, surfaced to the caller.
func parseExtractedInvoice(text string) (*extractedInvoice, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in model output", domain.ErrExtractionParse)
	}

	var data extractedInvoice
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionParse, err)
	}

	if data.VendorName == "" || data.InvoiceNumber == "" {
		return nil, fmt.Errorf("%w: missing vendor name or invoice number", domain.ErrExtractionParse)
	}

	return &data, nil
}

func parseInvoiceDates(data *extractedInvoice) (invoiceDate, dueDate time.Time, err error) {
	invoiceDate, err = time.Parse("2006-01-02", data.InvoiceDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid invoice date %q", domain.ErrExtractionParse, data.InvoiceDate)
	}
	dueDate, err = time.Parse("2006-01-02", data.DueDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid due date %q", domain.ErrExtractionParse, data.DueDate)
	}
	return invoiceDate, dueDate, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
