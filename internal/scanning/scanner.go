package scanning

import (
	"errors"
	"fmt"
)

// ErrDocumentUnreadable is returned when a payload cannot be opened as a document.
var ErrDocumentUnreadable = errors.New("document unreadable")

// Extractor defines the interface for document text extraction
type Extractor interface {
	// ExtractText returns the text of every page of the document, in page order.
	// A document without a text layer yields an empty string, not an error.
	ExtractText(data []byte) (string, error)
}

// Engine names accepted by NewExtractor
const (
	EngineFitz = "fitz"
	EnginePure = "pure"
)

// NewExtractor returns the extractor for the named engine
func NewExtractor(engine string) (Extractor, error) {
	switch engine {
	case EngineFitz, "":
		return &Fitz{}, nil
	case EnginePure:
		return &Pure{}, nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", engine)
	}
}

func unreadable(err error) error {
	return fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
}
