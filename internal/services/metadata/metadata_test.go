// metadata_test.go — Unit tests for word counting and reading time.
package metadata

import (
	"strings"
	"testing"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", " \t\n  ", 0},
		{"single word", "hello", 1},
		{"single spaces", "one two three", 3},
		{"runs of whitespace", "one   two\t\tthree\n\nfour", 4},
		{"leading and trailing", "   padded words   ", 2},
		{"unicode", "Привет мир документ", 3},
		{"punctuation stays attached", "Hello, world! Done.", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.text); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestReadingTimeMinutes(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 0},
		{1, 1},
		{199, 1},
		{200, 1},
		{201, 2},
		{400, 2},
		{2847, 15},
	}

	for _, tt := range tests {
		if got := ReadingTimeMinutes(tt.words); got != tt.want {
			t.Errorf("ReadingTimeMinutes(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

// TestComputeInvariant checks readingTime == ceil(words/200) across sizes.
func TestComputeInvariant(t *testing.T) {
	for _, n := range []int{0, 1, 57, 200, 201, 999, 1000, 1001} {
		text := strings.TrimSpace(strings.Repeat("word ", n))
		m := Compute(text, 3)

		if m.WordCount != n {
			t.Errorf("n=%d: WordCount = %d", n, m.WordCount)
		}
		want := (n + 199) / 200
		if m.ReadingTimeMinutes != want {
			t.Errorf("n=%d: ReadingTimeMinutes = %d, want %d", n, m.ReadingTimeMinutes, want)
		}
		if m.PageCount != 3 {
			t.Errorf("n=%d: PageCount = %d, want 3", n, m.PageCount)
		}
		if m.FullText != text {
			t.Errorf("n=%d: FullText not preserved", n)
		}
	}
}
