package llm

import (
	"regexp"
	"strings"
)

// fieldWeights bias the blended score toward the fields the rest of the
// pipeline cannot proceed without: required fields count full, line
// items half. Currency is tracked per-field but carries no weight.
var fieldWeights = map[string]float32{
	"vendor_name":    1.0,
	"invoice_number": 1.0,
	"invoice_date":   1.0,
	"total":          1.0,
	"items":          0.5,
}

var (
	reISODate  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDecimal  = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)
	reCurrency = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// ScoreFields estimates per-field confidence from what the model did and
// did not fill in, then blends a weighted average with the model's own
// self-reported confidence when one was given. Present and well-typed
// scores 1, present but malformed 0.5, absent 0.
func ScoreFields(f InvoiceFields) (map[string]float32, float32) {
	fc := map[string]float32{
		"vendor_name":    presence(f.VendorName),
		"invoice_number": presence(f.InvoiceNumber),
		"invoice_date":   typed(f.InvoiceDate, reISODate),
		"total":          typed(f.Total, reDecimal),
		"currency_code":  typed(f.CurrencyCode, reCurrency),
		"items":          itemsScore(f.Items),
	}

	var sum, wsum float32
	for k, w := range fieldWeights {
		sum += fc[k] * w
		wsum += w
	}
	score := sum / wsum

	if f.ModelConfidence > 0 && f.ModelConfidence <= 1 {
		score = (score + f.ModelConfidence) / 2
	}
	return fc, score
}

func presence(s string) float32 {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return 1
}

func typed(s string, re *regexp.Regexp) float32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if re.MatchString(s) {
		return 1
	}
	return 0.5
}

// itemsScore rewards items that carry enough detail to cross-check:
// a description plus a price signal.
func itemsScore(items []ItemFields) float32 {
	if len(items) == 0 {
		return 0
	}
	var sum float32
	for _, it := range items {
		var s float32
		if strings.TrimSpace(it.Description) != "" || strings.TrimSpace(it.SKU) != "" {
			s += 0.5
		}
		if strings.TrimSpace(it.UnitPrice) != "" || strings.TrimSpace(it.LineTotal) != "" {
			s += 0.5
		}
		sum += s
	}
	return sum / float32(len(items))
}
