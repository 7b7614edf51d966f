package scanning

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Pure extracts text with a pure Go PDF reader, for builds without cgo
type Pure struct{}

// ExtractText reads every page's plain text in page order
func (p *Pure) ExtractText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", unreadable(fmt.Errorf("empty payload"))
	}

	// the reader panics on malformed object streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", unreadable(fmt.Errorf("panic while reading PDF: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", unreadable(fmt.Errorf("opening PDF: %w", err))
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		s, err := page.GetPlainText(nil)
		if err != nil {
			return "", unreadable(fmt.Errorf("reading page %d: %w", i, err))
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
