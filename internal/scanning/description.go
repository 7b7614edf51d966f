package scanning

import (
	"strings"
	"unicode/utf8"
)

var purposeMarkers = []string{"оплата", "услуги", "по счету", "мероприятие", "поставка"}

const minPurposeLength = 20

// ExtractDescription returns the longest line that looks like a payment purpose,
// or an empty string when no line qualifies
func ExtractDescription(text string) string {
	mentionsPurpose := containsAny(purposeMarkers...)

	var best string
	bestLen := 0
	for _, line := range splitLines(text) {
		if !mentionsPurpose(strings.ToLower(line)) {
			continue
		}
		trimmed := strings.TrimSpace(line)
		n := utf8.RuneCountInString(trimmed)
		if n <= minPurposeLength {
			continue
		}
		if n > bestLen {
			best, bestLen = trimmed, n
		}
	}
	return best
}

// splitLines splits on the line boundaries PDF text layers produce
func splitLines(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
			return true
		}
		return false
	})
}
