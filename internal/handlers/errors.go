package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/chat"
	pdfservice "github.com/Shimizu-Technology/pdf-analyzer/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/session"
)

// errorMapping ties a sentinel error to its HTTP status and error code.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Go Pattern: errors.Is walks the %w chain, so wrapped errors from deep in
// the services still match their sentinel here.
var errorMappings = []errorMapping{
	{pdfservice.ErrInvalidFormat, http.StatusUnprocessableEntity, "invalid_pdf", "The file is not a readable PDF document"},
	{pdfservice.ErrPageIndexOutOfRange, http.StatusBadRequest, "page_out_of_range", "Page index is outside the document"},
	{chat.ErrNotReady, http.StatusConflict, "document_loading", "The document is still loading or being analyzed"},
	{session.ErrNoDocument, http.StatusConflict, "no_document", "No document is open. Select one via POST /api/v1/session/document"},
	{session.ErrDocumentChanged, http.StatusConflict, "document_changed", "The document this token was issued for is no longer open"},
	{session.ErrAnalysisNotOpen, http.StatusConflict, "analysis_not_open", "Open the analysis panel via POST /api/v1/session/analyze first"},
	{session.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, "file_too_large", "The document exceeds the upload size limit"},
	{worker.ErrQueueFull, http.StatusServiceUnavailable, "busy", "The bridge is busy. Try again shortly"},
	{worker.ErrStopped, http.StatusServiceUnavailable, "unavailable", "The bridge is shutting down"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", "The request timed out"},
	{context.Canceled, http.StatusServiceUnavailable, "cancelled", "The request was cancelled"},
}

// respondError writes the ErrorResponse for err.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, models.ErrorResponse{
				Error:   m.code,
				Message: m.message,
				Code:    m.status,
			})
			return
		}
	}

	log.Printf("❌ %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong",
		Code:    http.StatusInternalServerError,
	})
}
