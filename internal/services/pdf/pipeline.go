// Package pdf is the rendering pipeline: it loads an uploaded PDF into a
// page-addressable handle, rasterizes single pages at a zoom scale and
// extracts per-page text.
//
// We use ledongthuc/pdf for parsing and text (pure Go, no CGO), pdfcpu for
// page geometry and optional strict validation, and golang.org/x/image for
// drawing. Rendering and text extraction are independent passes: extracting
// every page's text never renders anything, and rendering page 1 never
// requires extraction.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
)

var (
	// ErrInvalidFormat means the bytes are not a parseable PDF.
	ErrInvalidFormat = errors.New("invalid PDF document")
	// ErrPageIndexOutOfRange means a page outside [1, PageCount] was requested.
	ErrPageIndexOutOfRange = errors.New("page index out of range")
)

// A4 in points, used when a page declares no usable MediaBox.
const (
	defaultPageWidth  = 595
	defaultPageHeight = 842
)

// pdfcpu wants a config dir by default; the host keeps nothing on disk.
var disablePdfcpuConfig sync.Once

// Options configures the pipeline.
type Options struct {
	// WorkerURL is where the extension's page-rendering worker script lives.
	// It is resolved by the host environment and only reported back to the UI.
	WorkerURL string

	// StrictValidation additionally runs pdfcpu validation on Load and
	// rejects documents that fail it.
	StrictValidation bool
}

// Pipeline loads documents. It is safe for concurrent use.
type Pipeline struct {
	workerURL string
	strict    bool
	conf      *model.Configuration
	font      *opentype.Font
}

// NewPipeline creates a pipeline and parses the built-in text face.
func NewPipeline(opts Options) (*Pipeline, error) {
	disablePdfcpuConfig.Do(func() {
		model.ConfigPath = "disable"
	})

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text face: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Pipeline{
		workerURL: opts.WorkerURL,
		strict:    opts.StrictValidation,
		conf:      conf,
		font:      f,
	}, nil
}

// WorkerURL returns the injected worker script location.
func (p *Pipeline) WorkerURL() string {
	return p.workerURL
}

// Load parses doc into a Handle.
//
// Parsing, page geometry and (optional) validation run concurrently over
// independent readers of the same bytes. Any failure that means "this is not
// a PDF" is reported as ErrInvalidFormat.
func (p *Pipeline) Load(ctx context.Context, doc *models.Document) (*Handle, error) {
	if !ValidatePDF(doc.Content) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", ErrInvalidFormat)
	}

	var (
		reader *pdf.Reader
		dims   []pageBox
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := openReader(doc.Content)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if r.NumPage() == 0 {
			return fmt.Errorf("%w: document has no pages", ErrInvalidFormat)
		}
		reader = r
		return gctx.Err()
	})

	g.Go(func() error {
		pageDims, err := p.pageDims(doc.Content)
		if err != nil {
			// Geometry falls back to each page's own MediaBox.
			log.Printf("⚠️  pdfcpu could not read page dimensions for %q: %v", doc.Name, err)
			return nil
		}
		dims = pageDims
		return nil
	})

	if p.strict {
		g.Go(func() error {
			if err := p.validate(doc.Content); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(dims) != reader.NumPage() {
		dims = nil
	}

	h := &Handle{
		name:   doc.Name,
		reader: reader,
		boxes:  make([]pageBox, reader.NumPage()),
		faces:  newFaceCache(p.font),
	}
	for i := range h.boxes {
		h.boxes[i] = h.resolveBox(i+1, dims)
	}

	log.Printf("📄 Loaded %q: %d pages", doc.Name, reader.NumPage())
	return h, nil
}

// openReader wraps pdf.NewReader; the library panics on some malformed input.
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("parser panic: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageDims asks pdfcpu for per-page MediaBox sizes, converting a panic
// on hostile input into an error.
func (p *Pipeline) pageDims(data []byte) (dims []pageBox, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			dims, err = nil, fmt.Errorf("pdfcpu panic: %v", rec)
		}
	}()
	pageDims, err := api.PageDims(bytes.NewReader(data), p.conf)
	if err != nil {
		return nil, err
	}
	dims = make([]pageBox, len(pageDims))
	for i, d := range pageDims {
		dims[i] = pageBox{width: d.Width, height: d.Height}
	}
	return dims, nil
}

// validate runs pdfcpu's relaxed validation.
func (p *Pipeline) validate(data []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdfcpu panic: %v", rec)
		}
	}()
	return api.Validate(bytes.NewReader(data), p.conf)
}

// pageBox is a page's MediaBox in PDF points.
type pageBox struct {
	llx, lly      float64
	width, height float64
}

// Handle is an opened, page-addressable document.
// Go Pattern: The mutex serializes access to the parser and the glyph face
// cache, neither of which is safe for concurrent use. Extraction may run on
// a background goroutine while the event loop renders.
type Handle struct {
	name   string
	reader *pdf.Reader
	boxes  []pageBox

	mu    sync.Mutex
	faces *faceCache
}

// Name returns the document display name.
func (h *Handle) Name() string {
	return h.name
}

// PageCount returns the number of pages.
func (h *Handle) PageCount() int {
	return len(h.boxes)
}

// CheckPage returns ErrPageIndexOutOfRange unless 1 <= page <= PageCount.
func (h *Handle) CheckPage(page int) error {
	if page < 1 || page > h.PageCount() {
		return fmt.Errorf("%w: page %d not in [1, %d]", ErrPageIndexOutOfRange, page, h.PageCount())
	}
	return nil
}

// PageSize returns the page's width and height in points.
func (h *Handle) PageSize(page int) (float64, float64, error) {
	if err := h.CheckPage(page); err != nil {
		return 0, 0, err
	}
	b := h.boxes[page-1]
	return b.width, b.height, nil
}

// Viewport returns the pixel size of page at scale.
func (h *Handle) Viewport(page int, scale float64) (int, int, error) {
	w, ht, err := h.PageSize(page)
	if err != nil {
		return 0, 0, err
	}
	return scaled(w, scale), scaled(ht, scale), nil
}

func scaled(v, scale float64) int {
	px := int(v*scale + 0.5)
	if px < 1 {
		return 1
	}
	return px
}

// resolveBox picks the page geometry: the page's own MediaBox supplies the
// origin, pdfcpu's dimensions (when available) the size, A4 the fallback.
func (h *Handle) resolveBox(page int, dims []pageBox) pageBox {
	box, ok := mediaBox(h.reader.Page(page).V)
	if !ok {
		box = pageBox{width: defaultPageWidth, height: defaultPageHeight}
	}
	if page-1 < len(dims) && dims[page-1].width > 0 && dims[page-1].height > 0 {
		box.width = dims[page-1].width
		box.height = dims[page-1].height
	}
	return box
}

// mediaBox looks up /MediaBox on the page or the nearest ancestor that
// declares it (MediaBox is inheritable through the page tree).
func mediaBox(v pdf.Value) (pageBox, bool) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Len() == 4 {
			llx, lly := mb.Index(0).Float64(), mb.Index(1).Float64()
			urx, ury := mb.Index(2).Float64(), mb.Index(3).Float64()
			if urx > llx && ury > lly {
				return pageBox{llx: llx, lly: lly, width: urx - llx, height: ury - lly}, true
			}
		}
		v = v.Key("Parent")
	}
	return pageBox{}, false
}
