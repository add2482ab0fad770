// Package handlers contains HTTP handler functions for the bridge.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// Go handlers are plain functions — no class inheritance. We group related
// handlers into a struct (Handler) that holds shared dependencies. None of
// them touch session state directly: every call goes through the session,
// which runs it on the event loop.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/viewer"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/session"
)

// Options carries the configuration handlers report or enforce.
type Options struct {
	Version        string
	WorkerURL      string
	Locale         string
	MaxUploadBytes int64 // 0 means unlimited
	SessionSecret  string
}

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
type Handler struct {
	Session *session.Session
	Loop    *worker.Loop
	opts    Options
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(sess *session.Session, loop *worker.Loop, opts Options) *Handler {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Handler{
		Session: sess,
		Loop:    loop,
		opts:    opts,
	}
}

// HealthCheck returns the bridge health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	loopStatus := "running"
	if !h.Loop.Running() {
		loopStatus = "stopped"
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:     "ok",
		Version:    h.opts.Version,
		EventLoop:  loopStatus,
		QueueDepth: h.Loop.QueueDepth(),
	})
}

// ViewerConfig tells the extension UI how to set up its viewer.
// GET /api/v1/viewer/config
func (h *Handler) ViewerConfig(c *gin.Context) {
	c.JSON(http.StatusOK, models.ViewerConfigResponse{
		WorkerURL:      h.opts.WorkerURL,
		MinZoom:        viewer.MinZoom,
		MaxZoom:        viewer.MaxZoom,
		ZoomStep:       viewer.ZoomStep,
		MaxUploadBytes: h.opts.MaxUploadBytes,
		Locale:         h.opts.Locale,
	})
}
