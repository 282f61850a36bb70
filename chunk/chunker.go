// Package chunk splits extracted document text into candidate passages.
//
// Chunking is a pure function of the input text and the configured minimum
// length: typographic ligatures and dash variants are normalized to plain
// ASCII, the text is split on blank-line boundaries, and candidates shorter
// than the minimum are discarded.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Default minimum passage lengths, in characters.
//
// Bulk document indexing uses a stricter minimum than interactive uploads,
// where shorter paragraphs are still worth keeping.
const (
	IndexMinChars = 120
	ChatMinChars  = 40
)

// normalizer rewrites problematic typographic ligatures and dash variants
// that PDF text extraction commonly produces.
var normalizer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"–", "-",
	"—", "-",
)

// Paragraphs are separated by two or more consecutive newlines.
var paragraphSplitter = regexp.MustCompile(`\n{2,}`)

// Chunker splits raw text into normalized candidate passages.
type Chunker struct {
	minChars int
}

// New creates a Chunker that discards candidates whose trimmed length is
// below minChars. A non-positive minChars falls back to IndexMinChars.
func New(minChars int) *Chunker {
	if minChars <= 0 {
		minChars = IndexMinChars
	}
	return &Chunker{minChars: minChars}
}

// MinChars returns the configured minimum passage length.
func (c *Chunker) MinChars() int {
	return c.minChars
}

// Chunk splits raw text into candidate passages.
// Returns nil when no candidate meets the minimum length.
func (c *Chunker) Chunk(raw string) []string {
	normalized := Normalize(raw)

	var passages []string
	for _, candidate := range paragraphSplitter.Split(normalized, -1) {
		trimmed := strings.TrimSpace(candidate)
		// Minimums are in characters, not bytes, so multibyte scripts are
		// not over-counted.
		if utf8.RuneCountInString(trimmed) < c.minChars {
			continue
		}
		passages = append(passages, trimmed)
	}
	return passages
}

// Normalize rewrites ligatures and dash variants to plain ASCII equivalents.
func Normalize(text string) string {
	return normalizer.Replace(text)
}
