// chat.go handles the analysis panel endpoints.
//
// POST /api/v1/session/analyze — Open the panel and start the analysis
// GET  /api/v1/session/summary — Summary tab
// GET  /api/v1/session/chat    — Transcript
// POST /api/v1/session/chat    — Ask a question about the document
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/chat"
)

// Analyze opens the analysis panel. Calling it again restarts the analysis.
// POST /api/v1/session/analyze
func (h *Handler) Analyze(c *gin.Context) {
	snap, err := h.Session.Analyze(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, snap)
}

// GetSummary returns the summary tab, or is_analyzing while it is not ready.
// GET /api/v1/session/summary
func (h *Handler) GetSummary(c *gin.Context) {
	resp, err := h.Session.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetChat returns the transcript and whether a reply is on its way.
// GET /api/v1/session/chat
func (h *Handler) GetChat(c *gin.Context) {
	state, err := h.Session.Conversation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// PostChat submits a question. The assistant reply arrives later; poll
// GET /api/v1/session/chat for it.
// POST /api/v1/session/chat
//
// Whitespace-only messages are not an error: the panel simply ignores
// them, so the response is 200 with accepted=false.
func (h *Handler) PostChat(c *gin.Context) {
	var req models.CreateChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Request body must be {\"message\": \"...\"}",
			Code:    http.StatusBadRequest,
		})
		return
	}

	state, err := h.Session.Ask(c.Request.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptySubmission):
		c.JSON(http.StatusOK, models.ChatSubmitResponse{Accepted: false, Conversation: state})
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusAccepted, models.ChatSubmitResponse{Accepted: true, Conversation: state})
	}
}
