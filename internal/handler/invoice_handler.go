package handler

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoflow/internal/domain"
	"invoflow/internal/service"
)

const maxUploadBytes = 20 << 20 // 20 MB

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// InvoiceHandler serves the invoice processing and retrieval endpoints.
type InvoiceHandler struct {
	extraction service.ExtractionService
	invoices   service.InvoiceService
}

func NewInvoiceHandler(extraction service.ExtractionService, invoices service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{extraction: extraction, invoices: invoices}
}

// Process handles POST /api/v1/invoices/process. It expects a multipart form
// with a "file" part and an optional "chat_id" field.
func (h *InvoiceHandler) Process(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		HandleError(c, domain.ErrNoAttachment)
		return
	}
	if fileHeader.Size > maxUploadBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		HandleError(c, domain.ErrUnsupportedFileType)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("InvoiceHandler.Process: failed to open upload: %v", err)
		RespondError(c, http.StatusBadRequest, "INVALID_UPLOAD", "could not read uploaded file")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		log.Printf("InvoiceHandler.Process: failed to read upload: %v", err)
		RespondError(c, http.StatusBadRequest, "INVALID_UPLOAD", "could not read uploaded file")
		return
	}

	result, err := h.extraction.ProcessInvoice(c.Request.Context(), &service.ProcessInvoiceInput{
		ChatID:      c.PostForm("chat_id"),
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		FileBytes:   fileBytes,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, result)
}

// Get handles GET /api/v1/invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice id")
		return
	}

	details, err := h.invoices.GetWithDetails(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, details)
}

// List handles GET /api/v1/invoices?limit=N.
func (h *InvoiceHandler) List(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer")
			return
		}
		limit = parsed
	}

	invoices, err := h.invoices.ListRecent(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"invoices": invoices, "count": len(invoices)})
}

// Update handles PUT /api/v1/invoices/:id.
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice id")
		return
	}

	var input service.UpdateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	input.InvoiceID = id

	details, err := h.invoices.Update(c.Request.Context(), &input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, details)
}

// Download handles GET /api/v1/invoices/:id/download. It returns a presigned
// URL for the stored source document rather than proxying the bytes.
func (h *InvoiceHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice id")
		return
	}

	url, err := h.invoices.DownloadURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"download_url": url})
}
