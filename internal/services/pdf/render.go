package pdf

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ledongthuc/pdf"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
)

const defaultFontSize = 12

var (
	paperColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	inkColor   = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	ruleColor  = color.RGBA{R: 0xd1, G: 0xd5, B: 0xdb, A: 0xff}
)

// Surface is a pixel buffer owned by the caller (the viewer).
// Every render resizes it to exactly the viewport, which allocates a fresh
// image: a RenderedPage handed out earlier keeps its own pixels.
type Surface struct {
	img     *image.RGBA
	resizes int
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Resize discards the current pixels and allocates w×h.
func (s *Surface) Resize(w, h int) {
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	s.resizes++
}

// Image returns the current pixels (nil before the first render).
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Resizes counts how many times the surface has been reallocated.
func (s *Surface) Resizes() int {
	return s.resizes
}

// RenderPage rasterizes page at scale into a new surface.
func (h *Handle) RenderPage(page int, scale float64) (*models.RenderedPage, error) {
	return h.RenderInto(NewSurface(), page, scale)
}

// RenderInto rasterizes page at scale into surface, resizing it to the
// page viewport first.
func (h *Handle) RenderInto(surface *Surface, page int, scale float64) (*models.RenderedPage, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("invalid render scale %v", scale)
	}
	w, ht, err := h.Viewport(page, scale)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	content, err := pageContent(h.reader.Page(page))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}

	surface.Resize(w, ht)
	img := surface.Image()
	draw.Draw(img, img.Bounds(), image.NewUniform(paperColor), image.Point{}, draw.Src)

	box := h.boxes[page-1]
	toPx := func(x, y float64) (float64, float64) {
		return (x - box.llx) * scale, (box.lly + box.height - y) * scale
	}

	for _, r := range content.Rect {
		x0, y1 := toPx(r.Min.X, r.Min.Y)
		x1, y0 := toPx(r.Max.X, r.Max.Y)
		strokeRect(img, image.Rect(int(x0), int(y0), int(x1), int(y1)))
	}

	ink := image.NewUniform(inkColor)
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		face, err := h.faces.face(size * scale)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", page, err)
		}
		x, y := toPx(t.X, t.Y)
		d := font.Drawer{
			Dst:  img,
			Src:  ink,
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
		}
		d.DrawString(t.S)
	}

	return &models.RenderedPage{
		PageIndex: page,
		Scale:     scale,
		WidthPx:   w,
		HeightPx:  ht,
		Pixels:    img,
	}, nil
}

// pageContent wraps Page.Content, which panics on malformed content streams.
func pageContent(p pdf.Page) (c pdf.Content, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("content stream: %v", rec)
		}
	}()
	if p.V.IsNull() {
		return pdf.Content{}, nil
	}
	return p.Content(), nil
}

// strokeRect outlines r with 1px rules, clipped to the image.
func strokeRect(img *image.RGBA, r image.Rectangle) {
	r = r.Canon()
	src := image.NewUniform(ruleColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X+1, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y, r.Max.X+1, r.Max.Y+1),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y+1),
		image.Rect(r.Max.X, r.Min.Y, r.Max.X+1, r.Max.Y+1),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}

// faceCache keeps one face per (rounded) pixel size. Faces are not safe for
// concurrent use; callers hold the handle mutex.
type faceCache struct {
	font  *opentype.Font
	faces map[int]font.Face
}

func newFaceCache(f *opentype.Font) *faceCache {
	return &faceCache{font: f, faces: make(map[int]font.Face)}
}

// face returns a face for px, rounded to half a pixel.
func (c *faceCache) face(px float64) (font.Face, error) {
	key := int(math.Round(px * 2))
	if key < 2 {
		key = 2
	}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(key) / 2,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build %.1fpx face: %w", float64(key)/2, err)
	}
	c.faces[key] = f
	return f, nil
}
