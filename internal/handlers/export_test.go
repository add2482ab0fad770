// export_test.go contains tests for download naming and error mapping.
//
// Go Pattern: Table-driven tests are the standard Go testing pattern.
// You define a slice of test cases (each with a name, inputs, and expected
// outputs), then loop through them.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/chat"
	pdfservice "github.com/Shimizu-Technology/pdf-analyzer/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/session"
)

// TestSanitizeFilename verifies filename sanitization.
func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "clean filename",
			input:    "Annual Report 2024",
			expected: "Annual Report 2024",
		},
		{
			name:     "slashes and colons",
			input:    "Part 1/2: The Beginning",
			expected: "Part 1-2- The Beginning",
		},
		{
			name:     "special characters",
			input:    "What is Go? <A Guide>",
			expected: "What is Go- -A Guide-",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "long name gets truncated",
			input:    strings.Repeat("a", 200),
			expected: strings.Repeat("a", 100),
		},
	}

	for _, tt := range tests {
		// Go Pattern: t.Run creates a sub-test with its own name.
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// Cyrillic names are two bytes per rune; truncation must not split one.
func TestSanitizeFilenameKeepsRunesWhole(t *testing.T) {
	got := sanitizeFilename(strings.Repeat("я", 80))
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
	if len(got) > 100 {
		t.Errorf("length %d exceeds 100 bytes", len(got))
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantQuote string
	}{
		{"plain", "report.pdf", `filename="report.pdf"`},
		{"uppercase extension", "SCAN.PDF", `filename="SCAN.pdf"`},
		{"no extension", "notes", `filename="notes.pdf"`},
		{"separators", "a;b,c'd (1).pdf", `filename="a;b,c'd (1).pdf"`},
		{"cyrillic", "Отчёт.pdf", `filename="Отчёт.pdf"`},
		{"only unsafe", `"".pdf`, `filename="-.pdf"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := contentDisposition(tt.input)
			if !strings.Contains(header, tt.wantQuote) {
				t.Errorf("header %q lacks %s", header, tt.wantQuote)
			}

			_, ext, ok := strings.Cut(header, "filename*=UTF-8''")
			if !ok {
				t.Fatalf("header %q has no filename*", header)
			}
			for i := 0; i < len(ext); i++ {
				if ext[i] != '%' && !isAttrChar(ext[i]) {
					t.Errorf("filename* %q carries raw byte %q", ext, ext[i])
				}
			}
			got, err := url.PathUnescape(ext)
			if err != nil || got != tt.input {
				t.Errorf("filename* decodes to %q (%v), want %q", got, err, tt.input)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"invalid pdf", fmt.Errorf("load: %w", pdfservice.ErrInvalidFormat), http.StatusUnprocessableEntity, "invalid_pdf"},
		{"page out of range", pdfservice.ErrPageIndexOutOfRange, http.StatusBadRequest, "page_out_of_range"},
		{"loading", chat.ErrNotReady, http.StatusConflict, "document_loading"},
		{"no document", session.ErrNoDocument, http.StatusConflict, "no_document"},
		{"document changed", session.ErrDocumentChanged, http.StatusConflict, "document_changed"},
		{"panel closed", session.ErrAnalysisNotOpen, http.StatusConflict, "analysis_not_open"},
		{"too large", session.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
		{"loop stopped", fmt.Errorf("session unavailable: %w", worker.ErrStopped), http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if resp.Error != tt.wantErr || resp.Code != tt.wantCode {
				t.Errorf("body = %+v", resp)
			}
		})
	}
}
