package llm

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as
// a generic map. We pass this to the provider as an output constraint and
// also use it locally to validate the response. No field is required:
// a missing field lowers confidence downstream instead of failing the
// parse outright.
func BuildInvoiceJSONSchema() map[string]any {
	itemProps := map[string]any{
		"sku":         map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"quantity":    map[string]any{"type": "number", "minimum": 0.0},
		"unit_price":  decimalProp(),
		"line_total":  decimalProp(),
	}
	props := map[string]any{
		"vendor_name":    map[string]any{"type": "string"},
		"invoice_number": map[string]any{"type": "string"},
		"invoice_date":   map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"due_date":       map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           itemProps,
			},
		},
		"subtotal":      decimalProp(),
		"tax":           decimalProp(),
		"total":         decimalProp(),
		"currency_code": map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
		"confidence":    map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`,
	}
}

// ValidateJSONAgainstSchema compiles the schema map and validates doc.
func ValidateJSONAgainstSchema(schema map[string]any, doc []byte) error {
	sb, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiled, err := jsonschema.CompileString("invoice.schema.json", string(sb))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return compiled.Validate(v)
}
