package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"invoflow/internal/config"
	"invoflow/internal/domain"
	"invoflow/internal/modelclient"
	"invoflow/internal/port"
	"invoflow/internal/service"
	"invoflow/mocks"
)

const testModel = "gemini-1.5-flash"

func testS3Config() config.S3Config {
	return config.S3Config{
		Region:        "us-east-1",
		Bucket:        "test-bucket",
		PresignExpiry: 3600,
	}
}

func newExtractionFixture() (*mocks.MockPromptCache, *mocks.MockModelClient, *mocks.MockInvoiceRepo, *mocks.MockObjectStorage, service.ExtractionService) {
	cache := new(mocks.MockPromptCache)
	model := new(mocks.MockModelClient)
	invRepo := new(mocks.MockInvoiceRepo)
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	svc := service.NewExtractionService(cache, model, invRepo, storage, &cfg)
	return cache, model, invRepo, storage, svc
}

func pdfInput() *service.ProcessInvoiceInput {
	return &service.ProcessInvoiceInput{
		ChatID:      "chat-42",
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		FileBytes:   []byte("%PDF-1.4 fake invoice bytes"),
	}
}

const extractionJSON = `{
	"customerName": "Acme Corp",
	"vendorName": "Globex Inc",
	"invoiceNumber": "INV-1001",
	"invoiceDate": "2024-03-01",
	"dueDate": "2024-03-31",
	"totalAmount": "1250.00",
	"currency": "EUR",
	"lineItems": [
		{"description": "Consulting", "quantity": "10", "unitPrice": "100.00", "amount": "1000.00"},
		{"description": "Support", "quantity": "", "unitPrice": "250.00", "amount": "250.00"}
	]
}`

func isClassification(input port.InvokeInput) bool {
	return input.Prompt == modelclient.ClassificationPrompt
}

func isExtraction(input port.InvokeInput) bool {
	return input.Prompt == modelclient.ExtractionPrompt
}

func TestProcessInvoice_Success_CacheMisses(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{
			Text:  "yes",
			Usage: port.TokenUsage{PromptTokens: 100, CompletionTokens: 1, TotalTokens: 101},
		}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{
			Text:  extractionJSON,
			Usage: port.TokenUsage{PromptTokens: 200, CompletionTokens: 150, TotalTokens: 350},
		}, nil)
	cache.On("Store", mock.Anything, mock.AnythingOfType("*domain.CacheEntry")).Return(nil)
	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{Location: "https://test-bucket.s3.amazonaws.com/x"}, nil)

	var savedItems []domain.InvoiceLineItem
	invRepo.On("CreateWithItems", mock.Anything, mock.AnythingOfType("*domain.Invoice"),
		mock.AnythingOfType("[]domain.InvoiceLineItem"), mock.AnythingOfType("*domain.TokenUsageRecord")).
		Run(func(args mock.Arguments) {
			savedItems = args.Get(2).([]domain.InvoiceLineItem)
		}).
		Return(nil)

	result, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.NoError(t, err)
	assert.NotEqual(t, "", result.InvoiceID.String())
	assert.Contains(t, result.Message, "INV-1001")
	assert.Contains(t, result.Message, "Globex Inc")
	assert.Contains(t, result.Message, "1250.00 EUR")
	assert.Equal(t, int64(451), result.Usage.TotalTokens)
	assert.Equal(t, int64(300), result.Usage.PromptTokens)
	assert.Equal(t, int64(151), result.Usage.CompletionTokens)

	// Both responses written through to the cache.
	cache.AssertNumberOfCalls(t, "Store", 2)
	model.AssertNumberOfCalls(t, "Invoke", 2)

	// Empty quantity defaults to "1".
	assert.Len(t, savedItems, 2)
	assert.Equal(t, "10", savedItems[0].Quantity)
	assert.Equal(t, "1", savedItems[1].Quantity)
}

func TestProcessInvoice_Success_CacheHits(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	classifyFP := mock.AnythingOfType("string")
	cache.On("Lookup", mock.Anything, classifyFP, testModel).
		Return(&domain.CacheEntry{
			Response:         "yes",
			PromptTokens:     100,
			CompletionTokens: 1,
			TotalTokens:      101,
		}, nil).Once()
	cache.On("Lookup", mock.Anything, classifyFP, testModel).
		Return(&domain.CacheEntry{
			Response:         extractionJSON,
			PromptTokens:     200,
			CompletionTokens: 150,
			TotalTokens:      350,
		}, nil).Once()
	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{}, nil)
	invRepo.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.NoError(t, err)
	// Cached counts still make up the run's usage.
	assert.Equal(t, int64(451), result.Usage.TotalTokens)
	model.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestProcessInvoice_NotAnInvoice(t *testing.T) {
	cache, model, invRepo, _, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "No, this is a receipt.", Usage: port.TokenUsage{TotalTokens: 90}}, nil)
	cache.On("Store", mock.Anything, mock.AnythingOfType("*domain.CacheEntry")).Return(nil)

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.ErrorIs(t, err, domain.ErrNotAnInvoice)
	// The rejection itself is still cached; extraction never runs.
	cache.AssertNumberOfCalls(t, "Store", 1)
	model.AssertNumberOfCalls(t, "Invoke", 1)
	invRepo.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessInvoice_ClassificationAnswerNormalized(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "  Yes\n"}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{Text: extractionJSON}, nil)
	cache.On("Store", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	invRepo.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.NoError(t, err)
}

func TestProcessInvoice_ExtractionWrappedInProse(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	wrapped := "Sure, here is the extracted data:\n```json\n" + extractionJSON + "\n```\nLet me know if you need anything else."

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "yes"}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{Text: wrapped}, nil)
	cache.On("Store", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)

	var savedInv *domain.Invoice
	invRepo.On("CreateWithItems", mock.Anything, mock.AnythingOfType("*domain.Invoice"),
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedInv = args.Get(1).(*domain.Invoice)
		}).
		Return(nil)

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.NoError(t, err)
	assert.Equal(t, "Globex Inc", savedInv.VendorName)
	assert.Equal(t, "INV-1001", savedInv.InvoiceNumber)
}

func TestProcessInvoice_ExtractionParseFailure(t *testing.T) {
	cache, model, invRepo, _, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "yes"}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{Text: "I could not find any structured data in this document."}, nil)
	cache.On("Store", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.ErrorIs(t, err, domain.ErrExtractionParse)
	invRepo.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessInvoice_CurrencyDefaultsToUSD(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	noCurrency := `{"vendorName": "Globex Inc", "invoiceNumber": "INV-2", "invoiceDate": "2024-03-01", "dueDate": "2024-03-31", "totalAmount": "10.00", "currency": "", "lineItems": []}`

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "yes"}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{Text: noCurrency}, nil)
	cache.On("Store", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)

	var savedInv *domain.Invoice
	invRepo.On("CreateWithItems", mock.Anything, mock.AnythingOfType("*domain.Invoice"),
		mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedInv = args.Get(1).(*domain.Invoice)
		}).
		Return(nil)

	result, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.NoError(t, err)
	assert.Equal(t, "USD", savedInv.Currency)
	assert.Contains(t, result.Message, "10.00 USD")
}

func TestProcessInvoice_DuplicateInvoice(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	existing := &domain.Invoice{VendorName: "Globex Inc", InvoiceNumber: "INV-1001"}

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "yes"}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{Text: extractionJSON}, nil)
	cache.On("Store", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	invRepo.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.DuplicateInvoiceError{Existing: existing})

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	var dup *domain.DuplicateInvoiceError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, existing, dup.Existing)
}

func TestProcessInvoice_StoreConflictIsBenign(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "yes"}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{Text: extractionJSON}, nil)
	// Both writes lose the race; the run still completes with its own response.
	cache.On("Store", mock.Anything, mock.Anything).Return(domain.ErrCacheConflict)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	invRepo.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.NoError(t, err)
}

func TestProcessInvoice_LookupFailureDegradesToMiss(t *testing.T) {
	cache, model, invRepo, storage, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, assert.AnError)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isClassification)).
		Return(&port.InvokeOutput{Text: "yes"}, nil)
	model.On("Invoke", mock.Anything, mock.MatchedBy(isExtraction)).
		Return(&port.InvokeOutput{Text: extractionJSON}, nil)
	cache.On("Store", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	invRepo.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.NoError(t, err)
	model.AssertNumberOfCalls(t, "Invoke", 2)
}

func TestProcessInvoice_NoAttachment(t *testing.T) {
	cache, model, _, _, svc := newExtractionFixture()

	_, err := svc.ProcessInvoice(context.Background(), &service.ProcessInvoiceInput{
		ChatID:   "chat-42",
		FileName: "empty.pdf",
	})

	assert.ErrorIs(t, err, domain.ErrNoAttachment)
	cache.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
	model.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestProcessInvoice_ModelFailurePropagates(t *testing.T) {
	cache, model, invRepo, _, svc := newExtractionFixture()

	model.On("Model").Return(testModel)
	cache.On("Lookup", mock.Anything, mock.AnythingOfType("string"), testModel).
		Return(nil, domain.ErrNotFound)
	model.On("Invoke", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := svc.ProcessInvoice(context.Background(), pdfInput())

	assert.ErrorIs(t, err, assert.AnError)
	invRepo.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
