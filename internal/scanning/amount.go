package scanning

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountMarkers = []string{"сумма", "итого", "к оплате", "на сумму"}

var (
	// digits with optional space grouping, then an optional separator and up to two decimals
	amountPattern = regexp.MustCompile(`\d[\d\s\x{00A0}\x{202F}]*[.,]?\d{0,2}`)
	// OCR form of "1200.50" written as "1200-50"
	dashedAmountPattern = regexp.MustCompile(`\d{2,6}-\d{2}`)
	groupSpaces         = strings.NewReplacer(" ", "", "\t", "", "\u00a0", "", "\u202f", "")
)

// ExtractAmount finds the document amount. The first strategy scans lines that
// mention a sum or total; the fallback looks for a dashed amount anywhere in the
// text. ok is false when neither strategy finds a number.
//
// The scan is a heuristic: it returns the first number on the first marker line,
// so a line like "Сумма прописью: ..." followed by a date picks up the date.
func ExtractAmount(text string) (amount decimal.Decimal, ok bool) {
	for _, line := range splitLines(strings.ToLower(text)) {
		if !containsAny(amountMarkers...)(line) {
			continue
		}
		line = dashToPoint(line)
		for _, raw := range amountPattern.FindAllString(line, -1) {
			if d, ok := parseAmount(raw); ok {
				return d, true
			}
		}
	}

	if m := dashedAmountPattern.FindString(text); m != "" {
		if d, err := decimal.NewFromString(strings.Replace(m, "-", ".", 1)); err == nil {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(groupSpaces.Replace(raw), ",", ".")
	cleaned = strings.TrimSuffix(cleaned, ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// dashToPoint replaces every dash that sits between two digits with a point
func dashToPoint(s string) string {
	runes := []rune(s)
	for i := 1; i < len(runes)-1; i++ {
		if runes[i] == '-' && isASCIIDigit(runes[i-1]) && isASCIIDigit(runes[i+1]) {
			runes[i] = '.'
		}
	}
	return string(runes)
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
