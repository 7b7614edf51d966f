package scanning

import "strings"

// DocumentType is the kind of financial document a text was recognized as
type DocumentType string

const (
	Payment DocumentType = "payment"
	Invoice DocumentType = "invoice"
	Receipt DocumentType = "receipt"
	Unknown DocumentType = "unknown"
)

// Rule maps a predicate over lower-cased text to a document type
type Rule struct {
	Type  DocumentType
	Match func(lower string) bool
}

// Rules are evaluated in order; the first match wins.
// A receipt rule hit on "итого" also catches invoices that print a total.
var Rules = []Rule{
	{Type: Payment, Match: containsAny("платежное поручение", "платёжное поручение")},
	{Type: Invoice, Match: func(t string) bool {
		return strings.Contains(t, "счет на оплату") ||
			(strings.Contains(t, "инн") && strings.Contains(t, "услуги"))
	}},
	{Type: Receipt, Match: containsAny("фн", "итого", "ккт")},
}

// Classify returns the type of the first rule matching the text, or Unknown
func Classify(text string) DocumentType {
	return classifyWith(Rules, text)
}

func classifyWith(rules []Rule, text string) DocumentType {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.Match(lower) {
			return r.Type
		}
	}
	return Unknown
}

func containsAny(phrases ...string) func(string) bool {
	return func(s string) bool {
		for _, p := range phrases {
			if strings.Contains(s, p) {
				return true
			}
		}
		return false
	}
}
