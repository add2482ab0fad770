// pdf.go handles the viewer endpoints.
//
// GET  /api/v1/session/page     — Current page as PNG
// POST /api/v1/session/page     — Go to a page
// POST /api/v1/session/zoom/in  — Zoom in one step
// POST /api/v1/session/zoom/out — Zoom out one step
package handlers

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
)

// pngEncoder trades size for speed; a page is fetched again on every zoom.
var pngEncoder = &png.Encoder{CompressionLevel: png.BestSpeed}

// GetPage returns the page on display, rasterized at the current zoom.
// GET /api/v1/session/page
func (h *Handler) GetPage(c *gin.Context) {
	rp, err := h.Session.Page(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	// Encoding happens off the event loop. The render's pixel buffer is
	// never drawn into again, so this is safe.
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, rp.Pixels); err != nil {
		respondError(c, err)
		return
	}

	c.Header("X-Page-Index", strconv.Itoa(rp.PageIndex))
	c.Header("X-Page-Scale", strconv.FormatFloat(rp.Scale, 'f', -1, 64))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// GoToPage moves the viewer to another page.
// POST /api/v1/session/page
func (h *Handler) GoToPage(c *gin.Context) {
	var req models.GoToPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Request body must be {\"page\": <1-based page number>}",
			Code:    http.StatusBadRequest,
		})
		return
	}

	h.viewerResponse(c, func(ctx context.Context) (models.ViewerState, error) {
		return h.Session.GoToPage(ctx, req.Page)
	})
}

// ZoomIn steps the zoom up by 25%, stopping at 200%.
// POST /api/v1/session/zoom/in
func (h *Handler) ZoomIn(c *gin.Context) {
	h.viewerResponse(c, h.Session.ZoomIn)
}

// ZoomOut steps the zoom down by 25%, stopping at 50%.
// POST /api/v1/session/zoom/out
func (h *Handler) ZoomOut(c *gin.Context) {
	h.viewerResponse(c, h.Session.ZoomOut)
}

func (h *Handler) viewerResponse(c *gin.Context, op func(context.Context) (models.ViewerState, error)) {
	state, err := op(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
