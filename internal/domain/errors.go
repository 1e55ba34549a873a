package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrNoAttachment        = errors.New("no invoice attached")
	ErrNotAnInvoice        = errors.New("document is not an invoice")
	ErrExtractionParse     = errors.New("model output could not be parsed as invoice data")
	ErrCacheConflict       = errors.New("cache entry already exists for this fingerprint and model")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrPersistence         = errors.New("failed to persist invoice")
)

// DuplicateInvoiceError is returned when an invoice with the same
// (vendor, invoice number) natural key has already been persisted. It carries
// the existing row so callers can report it without a second query.
type DuplicateInvoiceError struct {
	Existing *Invoice
}

func (e *DuplicateInvoiceError) Error() string {
	return fmt.Sprintf("invoice %s from %s already processed",
		e.Existing.InvoiceNumber, e.Existing.VendorName)
}
