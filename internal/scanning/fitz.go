package scanning

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Fitz extracts text with MuPDF
type Fitz struct{}

// ExtractText opens the PDF from memory and concatenates the text of all pages
func (f *Fitz) ExtractText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", unreadable(fmt.Errorf("empty payload"))
	}

	// MuPDF bindings may panic on some broken inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", unreadable(fmt.Errorf("panic while reading PDF: %v", r))
		}
	}()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", unreadable(fmt.Errorf("opening PDF: %w", err))
	}
	defer doc.Close()

	var b strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		page, err := doc.Text(n)
		if err != nil {
			return "", unreadable(fmt.Errorf("reading page %d: %w", n+1, err))
		}
		b.WriteString(page)
	}
	return b.String(), nil
}
