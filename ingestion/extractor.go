package ingestion

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextExtractor extracts raw text from a document handle.
// The retrieval core receives already-extracted text; PDF, HTML, and other
// format-specific extraction belongs to external collaborators implementing
// this interface.
type TextExtractor interface {
	// ExtractText returns the raw text of the document behind handle.
	// A document from which no text at all can be extracted is an error;
	// partial extraction failures inside a document are tolerated by the
	// implementation (skip and continue).
	ExtractText(ctx context.Context, handle string) (string, error)
}

// FileExtractor reads plain-text documents from the filesystem.
type FileExtractor struct{}

var _ TextExtractor = (*FileExtractor)(nil)

// ExtractText reads the file at handle.
// Returns ErrNoUsableText if the file is empty or whitespace only.
func (FileExtractor) ExtractText(ctx context.Context, handle string) (string, error) {
	data, err := os.ReadFile(handle)
	if err != nil {
		return "", err
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoUsableText, handle)
	}
	return text, nil
}
