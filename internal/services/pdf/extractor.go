package pdf

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ExtractText returns every page's text, each page trimmed, joined with a
// single space in page order. It never renders.
func (h *Handle) ExtractText(ctx context.Context) (string, error) {
	pages, err := h.PageTexts(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, " "), nil
}

// PageTexts returns the trimmed text of every page, index 0 = page 1.
// A failure on any page aborts the whole extraction: callers never see a
// partial document.
func (h *Handle) PageTexts(ctx context.Context) ([]string, error) {
	texts := make([]string, 0, h.PageCount())
	for i := 1; i <= h.PageCount(); i++ {
		// Go Pattern: Check for cancellation between units of work so a
		// replaced document stops burning CPU.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := h.PageText(i)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// PageText returns the trimmed text of one page.
func (h *Handle) PageText(page int) (string, error) {
	if err := h.CheckPage(page); err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("text extraction failed on page %d: %w", page, err)
	}
	return strings.TrimSpace(text), nil
}

// ValidatePDF checks if the data looks like a valid PDF by checking the magic bytes.
func ValidatePDF(data []byte) bool {
	// PDF files start with "%PDF-"
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// Fingerprint returns the hex BLAKE2b-256 digest of data. It identifies a
// document in bridge tokens and lets the download path prove passthrough.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
