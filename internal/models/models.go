// Package models defines the data structures shared across the analyzer.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// They carry no behavior beyond small helpers. The services own the logic,
// and the session package owns every mutation.
package models

import (
	"image"
	"time"
)

// Document is a PDF the user selected in the extension.
// It is immutable once created: the session hands out copies of Content,
// never the backing slice itself.
type Document struct {
	Name        string    `json:"name"`
	SizeBytes   int64     `json:"size_bytes"`
	Content     []byte    `json:"-"`           // "-" means never serialize to JSON
	Fingerprint string    `json:"fingerprint"` // BLAKE2b-256 of Content, hex encoded
	SelectedAt  time.Time `json:"selected_at"`
}

// SizeMB reports the size the way the viewer header shows it.
func (d *Document) SizeMB() float64 {
	return float64(d.SizeBytes) / (1024 * 1024)
}

// RenderedPage is one page rasterized at a given scale.
// A new RenderedPage (and a new pixel surface) is produced on every render;
// surfaces are never reused across scales.
type RenderedPage struct {
	PageIndex int         `json:"page_index"` // 1-based
	Scale     float64     `json:"scale"`
	WidthPx   int         `json:"width_px"`
	HeightPx  int         `json:"height_px"`
	Pixels    *image.RGBA `json:"-"`
}

// DocumentMetadata is computed once per document after text extraction.
// Invariant: ReadingTimeMinutes == ceil(WordCount / 200).
type DocumentMetadata struct {
	PageCount          int    `json:"page_count"`
	WordCount          int    `json:"word_count"`
	ReadingTimeMinutes int    `json:"reading_time_minutes"`
	FullText           string `json:"-"`
}

// Role identifies who authored a chat message.
// Go Pattern: We use string constants instead of enums (Go doesn't have enums).
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the conversation transcript.
// Messages are append-only: once created they are never mutated.
type ChatMessage struct {
	ID        string    `json:"id"`  // UUIDv7, sorts in creation order
	Seq       int       `json:"seq"` // 1-based position in the transcript
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationState is a point-in-time copy of the chat panel.
type ConversationState struct {
	Messages     []ChatMessage `json:"messages"`
	PendingReply bool          `json:"pending_reply"`
}

// Summary is the static analysis view shown in the panel's summary tab.
type Summary struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	KeyPoints   []string `json:"key_points"`
	PageCount   int      `json:"page_count"`
	WordCount   int      `json:"word_count"`
	ReadingTime string   `json:"reading_time"`
}

// ViewMode is the page orchestrator's top-level state.
type ViewMode string

const (
	ModeNoDocument          ViewMode = "no_document"
	ModePreviewOnly         ViewMode = "preview_only"
	ModePreviewWithAnalysis ViewMode = "preview_with_analysis"
)

// ViewerState describes the viewer surface without its pixels.
type ViewerState struct {
	Zoom        int     `json:"zoom"`
	Scale       float64 `json:"scale"`
	CurrentPage int     `json:"current_page"`
	PageCount   int     `json:"page_count"`
	CanZoomIn   bool    `json:"can_zoom_in"`
	CanZoomOut  bool    `json:"can_zoom_out"`
	RenderCount int     `json:"render_count"`
}

// SessionSnapshot is everything the extension UI needs to draw itself.
type SessionSnapshot struct {
	Mode         ViewMode           `json:"mode"`
	Document     *Document          `json:"document,omitempty"`
	Loading      bool               `json:"loading"`
	Metadata     *DocumentMetadata  `json:"metadata,omitempty"`
	Viewer       *ViewerState       `json:"viewer,omitempty"`
	IsAnalyzing  bool               `json:"is_analyzing"`
	Conversation *ConversationState `json:"conversation,omitempty"`
	LastError    string             `json:"last_error,omitempty"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---
// Go Pattern: Separate structs for API input/output vs internal state.

// SelectDocumentResponse is returned after a successful upload.
// Token must be sent as "Authorization: Bearer <token>" on session routes.
type SelectDocumentResponse struct {
	Token    string          `json:"token"`
	Snapshot SessionSnapshot `json:"snapshot"`
}

// GoToPageRequest is the JSON body for POST /api/v1/session/page.
type GoToPageRequest struct {
	Page int `json:"page" binding:"required"`
}

// CreateChatMessageRequest is the JSON body for POST /api/v1/session/chat.
// Whitespace-only messages are accepted by the binding and ignored by the panel.
type CreateChatMessageRequest struct {
	Message string `json:"message"`
}

// ChatSubmitResponse reports whether a submission reached the transcript.
type ChatSubmitResponse struct {
	Accepted     bool              `json:"accepted"`
	Conversation ConversationState `json:"conversation"`
}

// SummaryResponse wraps the summary tab; Summary is nil while analyzing.
type SummaryResponse struct {
	IsAnalyzing bool     `json:"is_analyzing"`
	Summary     *Summary `json:"summary,omitempty"`
}

// ViewerConfigResponse is returned by GET /api/v1/viewer/config.
type ViewerConfigResponse struct {
	WorkerURL      string `json:"worker_url"`
	MinZoom        int    `json:"min_zoom"`
	MaxZoom        int    `json:"max_zoom"`
	ZoomStep       int    `json:"zoom_step"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
	Locale         string `json:"locale"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	EventLoop  string `json:"event_loop"`
	QueueDepth int    `json:"queue_depth"`
}
