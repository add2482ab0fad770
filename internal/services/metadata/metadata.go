// Package metadata computes document statistics from extracted text.
package metadata

import (
	"strings"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
)

// WordsPerMinute is the reading speed used for reading-time estimates.
const WordsPerMinute = 200

// Compute builds the metadata for a fully extracted document.
// It is called once per document, after every page has been visited.
func Compute(fullText string, pageCount int) models.DocumentMetadata {
	words := CountWords(fullText)
	return models.DocumentMetadata{
		PageCount:          pageCount,
		WordCount:          words,
		ReadingTimeMinutes: ReadingTimeMinutes(words),
		FullText:           fullText,
	}
}

// CountWords counts whitespace-delimited, non-empty tokens.
// strings.Fields splits on runs of Unicode whitespace and drops empty tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ReadingTimeMinutes is ceil(words / WordsPerMinute). Zero words read in
// zero minutes; there is no one-minute floor.
func ReadingTimeMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
