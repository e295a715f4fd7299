package llm

import "strings"

// maxPromptText caps how much extracted text goes into the user prompt.
const maxPromptText = 6000

// BuildSystemPrompt composes the system message: the parser's role,
// formatting rules, and the schema the output must satisfy.
func BuildSystemPrompt(schemaJSON string) string {
	parts := []string{
		"You are an invoice parser. Return ONLY JSON that matches the provided JSON Schema.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Currency must be a 3-letter ISO 4217 code; default to USD if uncertain.",
		"Money fields are decimal strings like \"1234.56\" with no currency symbols or thousands separators.",
		"List every line item you can read under 'items'; omit a field rather than guessing.",
		"Include a 'confidence' number between 0 and 1 reflecting how legible the document was.",
		"Never output null. If a field is not present, omit it.",
		"JSON Schema:\n" + schemaJSON,
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the extracted text, truncated to keep the
// request within sane token limits.
func BuildUserPrompt(rawText string) string {
	txt := strings.TrimSpace(rawText)

	var b strings.Builder
	b.WriteString("Extracted invoice text:\n")
	if len(txt) > maxPromptText {
		b.WriteString(txt[:maxPromptText])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(txt)
	}
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}
