package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoflow/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response. Details carries structured
// recovery data when the error has any (only duplicate invoices do).
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrNoAttachment):
		return http.StatusBadRequest, "NO_ATTACHMENT", "there is no attached invoice to process; please attach an invoice and try again"
	case errors.Is(err, domain.ErrNotAnInvoice):
		return http.StatusUnprocessableEntity, "NOT_AN_INVOICE", "this document does not appear to be an invoice"
	case errors.Is(err, domain.ErrExtractionParse):
		return http.StatusUnprocessableEntity, "EXTRACTION_PARSE_FAILED", "could not extract invoice data from the document"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "PERSISTENCE_FAILED", "failed to process invoice; please ensure the document is a valid invoice"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
// Duplicate invoices get a conflict response echoing the persisted row so the
// caller can inform the user without a second query.
func HandleError(c *gin.Context, err error) {
	var dup *domain.DuplicateInvoiceError
	if errors.As(err, &dup) {
		c.JSON(http.StatusConflict, APIResponse{
			Success: false,
			Error: &APIError{
				Code:    "DUPLICATE_INVOICE",
				Message: "this invoice has already been processed",
				Details: gin.H{
					"invoice_id":     dup.Existing.ID,
					"vendor_name":    dup.Existing.VendorName,
					"invoice_number": dup.Existing.InvoiceNumber,
					"total_amount":   dup.Existing.TotalAmount,
					"currency":       dup.Existing.Currency,
					"invoice_date":   dup.Existing.InvoiceDate.Format("2006-01-02"),
					"due_date":       dup.Existing.DueDate.Format("2006-01-02"),
				},
			},
		})
		return
	}

	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
