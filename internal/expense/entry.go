package expense

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrNotManualEntry is returned for chat text that does not start with a dash
var ErrNotManualEntry = errors.New(`manual entry must start with "-"`)

// thousandSuffix is the colloquial "5т" for 5000
const thousandSuffix = "т"

// ParseError reports a manual entry whose amount could not be parsed
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing amount %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseManualEntry parses chat shorthand of the form "-amount comment".
// The leading dash marks the entry, it does not make the amount negative.
func ParseManualEntry(text string, now time.Time) (Record, error) {
	if !strings.HasPrefix(text, "-") {
		return Record{}, ErrNotManualEntry
	}

	body := strings.TrimSpace(strings.TrimPrefix(text, "-"))
	token, comment := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		token, comment = body[:i], strings.TrimSpace(body[i:])
	}

	normalized := strings.ReplaceAll(token, thousandSuffix, "000")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return Record{}, &ParseError{Token: token, Err: err}
	}

	if n := utf8.RuneCountInString(comment); n > maxDescriptionLength {
		return Record{}, fmt.Errorf("%w: %d characters, at most %d", ErrDescriptionTooLong, n, maxDescriptionLength)
	}

	return Record{
		Amount:      amount,
		Description: comment,
		RecordedAt:  now,
	}, nil
}
