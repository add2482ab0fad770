// export.go serves the original document back to the user.
//
// GET /api/v1/session/download — Original bytes, original filename
package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// Download returns the exact bytes that were uploaded.
// GET /api/v1/session/download
//
// The quoted filename is a sanitized fallback that always ends in ".pdf".
// The byte-exact original name travels only in the RFC 5987 filename*
// parameter, so clients that ignore filename* save under the fallback.
func (h *Handler) Download(c *gin.Context) {
	name, data, err := h.Session.Download(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(name))
	c.Data(http.StatusOK, "application/pdf", data)
}

// contentDisposition builds an attachment header carrying both the
// sanitized fallback and the exact name.
func contentDisposition(name string) string {
	filename := sanitizeFilename(strings.TrimSuffix(name, filepath.Ext(name)))
	if filename == "" {
		filename = "document"
	}
	return fmt.Sprintf(`attachment; filename="%s.pdf"; filename*=UTF-8''%s`, filename, extValue(name))
}

// extValue percent-encodes s as an RFC 5987 ext-value. Only attr-char
// bytes are left as they are; url.PathEscape would keep ' ; , and others
// that end or split the parameter.
func extValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isAttrChar(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0f])
	}
	return b.String()
}

func isAttrChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", ch) >= 0
}

// sanitizeFilename removes characters that aren't safe for filenames.
// Go Pattern: Keep it simple — replace unsafe characters with hyphens
// and trim the result. We don't need a full filesystem-safe sanitizer
// since this is just for the Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	// Collapse multiple hyphens/spaces
	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	// Limit length without splitting a multi-byte rune
	for len(name) > 100 {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}

	return name
}
