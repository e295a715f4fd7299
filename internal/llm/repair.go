package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// topLevelKeys is the set of keys the schema accepts on the root object.
var topLevelKeys = map[string]bool{
	"vendor_name": true, "invoice_number": true, "invoice_date": true,
	"due_date": true, "items": true, "subtotal": true, "tax": true,
	"total": true, "currency_code": true, "confidence": true,
}

var itemKeys = map[string]bool{
	"sku": true, "description": true, "quantity": true,
	"unit_price": true, "line_total": true,
}

// RepairJSON is the single repair pass applied when the model's output
// fails strict validation:
//   - strips markdown code fences and leading/trailing prose
//   - renames common key synonyms to the schema's names
//   - coerces numeric money values to decimal strings
//   - drops null/empty optionals and unknown keys
//
// It returns the repaired document and the list of fixes applied.
func RepairJSON(raw []byte) ([]byte, []string, error) {
	body, err := extractJSONObject(raw)
	if err != nil {
		return nil, nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, nil, fmt.Errorf("repair: decode: %w", err)
	}

	var fixes []string
	rename := func(obj map[string]any, from, to string) {
		if v, ok := obj[from]; ok {
			if _, exists := obj[to]; !exists {
				obj[to] = v
			}
			delete(obj, from)
			fixes = append(fixes, from+"->"+to)
		}
	}

	// key synonyms models like to invent
	rename(m, "vendor", "vendor_name")
	rename(m, "supplier", "vendor_name")
	rename(m, "supplier_name", "vendor_name")
	rename(m, "invoice_no", "invoice_number")
	rename(m, "number", "invoice_number")
	rename(m, "date", "invoice_date")
	rename(m, "line_items", "items")
	rename(m, "total_amount", "total")
	rename(m, "amount_due", "total")
	rename(m, "currency", "currency_code")

	for _, k := range []string{"subtotal", "tax", "total"} {
		coerceMoney(m, k, &fixes)
	}
	coerceString(m, "invoice_number", &fixes)
	if v, ok := m["currency_code"].(string); ok {
		m["currency_code"] = strings.ToUpper(strings.TrimSpace(v))
	}

	if items, ok := m["items"].([]any); ok {
		cleaned := make([]any, 0, len(items))
		for _, it := range items {
			obj, ok := it.(map[string]any)
			if !ok {
				fixes = append(fixes, "items(non-object entry)")
				continue
			}
			rename(obj, "name", "description")
			rename(obj, "item", "description")
			rename(obj, "qty", "quantity")
			rename(obj, "price", "unit_price")
			rename(obj, "amount", "line_total")
			rename(obj, "total", "line_total")
			coerceMoney(obj, "unit_price", &fixes)
			coerceMoney(obj, "line_total", &fixes)
			coerceQuantity(obj, &fixes)
			dropNullsAndEmpties(obj, &fixes)
			dropUnknown(obj, itemKeys, &fixes)
			cleaned = append(cleaned, obj)
		}
		m["items"] = cleaned
	}

	dropNullsAndEmpties(m, &fixes)
	dropUnknown(m, topLevelKeys, &fixes)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, nil, fmt.Errorf("repair: encode: %w", err)
	}
	return out, fixes, nil
}

// extractJSONObject pulls the first balanced {...} out of possibly-fenced,
// possibly-prose-wrapped model output.
func extractJSONObject(raw []byte) ([]byte, error) {
	s := strings.TrimSpace(string(raw))
	if i := strings.Index(s, "```"); i >= 0 {
		s = strings.ReplaceAll(s, "```json", "```")
		if parts := strings.Split(s, "```"); len(parts) >= 2 {
			s = parts[1]
		}
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, fmt.Errorf("repair: no JSON object in output")
	}
	depth, inStr, esc := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case esc:
			esc = false
		case inStr:
			if c == '\\' {
				esc = true
			} else if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return []byte(s[start : i+1]), nil
			}
		}
	}
	return nil, fmt.Errorf("repair: unbalanced JSON object")
}

func coerceMoney(obj map[string]any, k string, fixes *[]string) {
	v, ok := obj[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		obj[k] = strconv.FormatFloat(t, 'f', 2, 64)
		*fixes = append(*fixes, k+"(number->string)")
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimLeft(s, "$£€")
		s = strings.ReplaceAll(s, ",", "")
		if s != t {
			*fixes = append(*fixes, k+"(normalized)")
		}
		obj[k] = s
	}
}

func coerceString(obj map[string]any, k string, fixes *[]string) {
	if v, ok := obj[k].(float64); ok {
		obj[k] = strconv.FormatFloat(v, 'f', -1, 64)
		*fixes = append(*fixes, k+"(number->string)")
	}
}

func coerceQuantity(obj map[string]any, fixes *[]string) {
	if v, ok := obj["quantity"].(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			obj["quantity"] = f
			*fixes = append(*fixes, "quantity(string->number)")
		} else {
			delete(obj, "quantity")
			*fixes = append(*fixes, "quantity(unparseable)")
		}
	}
}

func dropNullsAndEmpties(m map[string]any, fixes *[]string) {
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
			*fixes = append(*fixes, k+"(null)")
		case string:
			if strings.TrimSpace(t) == "" || strings.EqualFold(t, "null") {
				delete(m, k)
				*fixes = append(*fixes, k+"(empty)")
			}
		}
	}
}

func dropUnknown(m map[string]any, allowed map[string]bool, fixes *[]string) {
	for k := range m {
		if !allowed[k] {
			delete(m, k)
			*fixes = append(*fixes, k+"(unknown)")
		}
	}
}
