// Package viewer is the preview surface: zoom state, the current page and
// the download passthrough.
//
// Zoom is an integer percentage, starting at 100 and moving in steps of 25
// within [50, 200]. Every transition that changes the zoom renders the
// current page (only that page) at scale = zoom/100 into a freshly sized
// surface. Like the chat panel, a Viewer is confined to the event loop.
package viewer

import (
	"errors"
	"fmt"
	"log"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	pdfservice "github.com/Shimizu-Technology/pdf-analyzer/internal/services/pdf"
)

// Zoom bounds, in percent.
const (
	MinZoom     = 50
	MaxZoom     = 200
	ZoomStep    = 25
	DefaultZoom = 100
)

// Renderer is the part of the rendering pipeline the viewer needs.
// *pdf.Handle satisfies it.
type Renderer interface {
	PageCount() int
	RenderInto(surface *pdfservice.Surface, page int, scale float64) (*models.RenderedPage, error)
}

// Options configures a Viewer.
type Options struct {
	// StrictBounds makes out-of-range page requests fail with
	// pdf.ErrPageIndexOutOfRange instead of clamping. Development builds
	// turn it on so navigation bugs surface immediately.
	StrictBounds bool
}

// Viewer holds the zoom state for one document.
type Viewer struct {
	doc      *models.Document
	renderer Renderer
	strict   bool

	zoom        int
	page        int
	surface     *pdfservice.Surface
	last        *models.RenderedPage
	renderCount int
}

// New creates a viewer at 100% on page 1. Nothing is rendered yet.
func New(doc *models.Document, renderer Renderer, opts Options) *Viewer {
	return &Viewer{
		doc:      doc,
		renderer: renderer,
		strict:   opts.StrictBounds,
		zoom:     DefaultZoom,
		page:     1,
		surface:  pdfservice.NewSurface(),
	}
}

// Zoom returns the zoom percentage.
func (v *Viewer) Zoom() int {
	return v.zoom
}

// Scale returns zoom/100, the scale every render uses.
func (v *Viewer) Scale() float64 {
	return float64(v.zoom) / 100
}

// CurrentPage returns the 1-based page on display.
func (v *Viewer) CurrentPage() int {
	return v.page
}

// LastRender returns the most recent render, or nil.
func (v *Viewer) LastRender() *models.RenderedPage {
	return v.last
}

// State describes the viewer for the UI.
func (v *Viewer) State() models.ViewerState {
	return models.ViewerState{
		Zoom:        v.zoom,
		Scale:       v.Scale(),
		CurrentPage: v.page,
		PageCount:   v.renderer.PageCount(),
		CanZoomIn:   v.zoom < MaxZoom,
		CanZoomOut:  v.zoom > MinZoom,
		RenderCount: v.renderCount,
	}
}

// ZoomIn adds ZoomStep up to MaxZoom and re-renders. At the bound it is a
// no-op and returns the previous render.
func (v *Viewer) ZoomIn() (*models.RenderedPage, error) {
	return v.setZoom(min(v.zoom+ZoomStep, MaxZoom))
}

// ZoomOut subtracts ZoomStep down to MinZoom and re-renders. At the bound
// it is a no-op and returns the previous render.
func (v *Viewer) ZoomOut() (*models.RenderedPage, error) {
	return v.setZoom(max(v.zoom-ZoomStep, MinZoom))
}

func (v *Viewer) setZoom(zoom int) (*models.RenderedPage, error) {
	if zoom == v.zoom {
		return v.last, nil
	}
	prev := v.zoom
	v.zoom = zoom
	rp, err := v.Render()
	if err != nil {
		v.zoom = prev
		return nil, err
	}
	return rp, nil
}

// GoToPage renders page at the current scale. Out-of-range pages fail in
// strict mode and are clamped otherwise.
func (v *Viewer) GoToPage(page int) (*models.RenderedPage, error) {
	count := v.renderer.PageCount()
	if page < 1 || page > count {
		if v.strict {
			return nil, fmt.Errorf("%w: page %d not in [1, %d]", pdfservice.ErrPageIndexOutOfRange, page, count)
		}
		clamped := min(max(page, 1), count)
		log.Printf("⚠️  Page %d out of range for %q, clamping to %d", page, v.doc.Name, clamped)
		page = clamped
	}
	prev := v.page
	v.page = page
	rp, err := v.Render()
	if err != nil {
		v.page = prev
		return nil, err
	}
	return rp, nil
}

// Render draws the current page at the current scale. The surface is
// resized on every call, so earlier renders are never overwritten.
func (v *Viewer) Render() (*models.RenderedPage, error) {
	rp, err := v.renderer.RenderInto(v.surface, v.page, v.Scale())
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d at %d%%: %w", v.page, v.zoom, err)
	}
	v.last = rp
	v.renderCount++
	return rp, nil
}

// Current returns the last render, rendering first if nothing has been
// drawn yet.
func (v *Viewer) Current() (*models.RenderedPage, error) {
	if v.last != nil {
		return v.last, nil
	}
	return v.Render()
}

// ErrNoContent means the document has no bytes to download.
var ErrNoContent = errors.New("document has no content")

// Download returns the original filename and an exact copy of the original
// bytes. It does not depend on anything having been rendered.
func (v *Viewer) Download() (string, []byte, error) {
	if v.doc == nil || v.doc.Content == nil {
		return "", nil, ErrNoContent
	}
	out := make([]byte, len(v.doc.Content))
	copy(out, v.doc.Content)
	return v.doc.Name, out, nil
}
