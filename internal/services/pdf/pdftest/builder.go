// Package pdftest builds small, well-formed PDF documents in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Letter page size in points.
const (
	LetterWidth  = 612
	LetterHeight = 792
)

// BadTextOperator is a content stream whose Tj has the wrong operands.
// The page parses, but neither rendering nor text extraction can read it.
const BadTextOperator = "BT /F1 12 Tf 72 720 Td 1 2 Tj ET"

// Page describes one page of a generated document.
type Page struct {
	Text    string // drawn as a single text run; empty means a blank page
	Content string // raw content stream; overrides Text when set
	Width   float64
	Height  float64
}

// Build returns a Letter-sized PDF with one page per text.
func Build(texts ...string) []byte {
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = Page{Text: t, Width: LetterWidth, Height: LetterHeight}
	}
	return BuildPages(pages)
}

// BuildPages returns a PDF with the given pages. Object layout:
// 1 catalog, 2 page tree, 3 font, then a (page, contents) pair per page.
func BuildPages(pages []Page) []byte {
	var buf bytes.Buffer
	offsets := []int{}

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		w, h := p.Width, p.Height
		if w <= 0 || h <= 0 {
			w, h = LetterWidth, LetterHeight
		}
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			num(w), num(h), 5+2*i))

		stream := "BT ET"
		if p.Text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 %s Td (%s) Tj ET", num(h-72), escape(p.Text))
		}
		if p.Content != "" {
			stream = p.Content
		}
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func num(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// escape protects the characters that are special inside a PDF literal string.
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
