// session.go handles document selection and the session lifecycle.
//
// POST   /api/v1/session/document — Upload a PDF and open it
// GET    /api/v1/session          — Current session snapshot
// DELETE /api/v1/session          — Close the document
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/middleware"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/session"
)

// multipartOverhead is headroom for the multipart envelope around the file.
const multipartOverhead = 1 << 20

// SelectDocument opens an uploaded PDF, replacing any open document.
// POST /api/v1/session/document
//
// Accepts multipart file upload with field name "file". The response
// carries the session token the other session routes require.
func (h *Handler) SelectDocument(c *gin.Context) {
	if h.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, session.ErrDocumentTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "No PDF file provided. Upload a file with the field name 'file'.",
			Code:    http.StatusBadRequest,
		})
		return
	}
	defer file.Close()

	// Go Pattern: io.ReadAll reads the entire reader into a byte slice.
	// The PDF reader needs random access, so the whole file lives in memory.
	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, session.ErrDocumentTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "read_error",
			Message: "Failed to read uploaded file",
			Code:    http.StatusBadRequest,
		})
		return
	}

	name := filepath.Base(header.Filename)
	snap, err := h.Session.Select(c.Request.Context(), name, data)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateSessionToken(snap.Document, h.opts.SessionSecret)
	if err != nil {
		log.Printf("❌ Failed to sign session token: %v", err)
		respondError(c, fmt.Errorf("failed to sign session token: %w", err))
		return
	}

	c.JSON(http.StatusCreated, models.SelectDocumentResponse{
		Token:    token,
		Snapshot: snap,
	})
}

// GetSession returns the session snapshot.
// GET /api/v1/session
func (h *Handler) GetSession(c *gin.Context) {
	snap, err := h.Session.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CloseSession closes the document and cancels its timers.
// DELETE /api/v1/session
func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.Session.Close(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
