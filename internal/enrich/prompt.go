package enrich

import (
	"encoding/json"
	"strings"
)

// BuildPrompt renders the keyword-suggestion request. The wording is free to
// change; only the reply shape is relied upon.
func BuildPrompt(categories, descriptions []string) string {
	names, _ := json.Marshal(categories)

	var b strings.Builder
	b.WriteString("You are a financial categorization expert. Analyze these uncategorized bank transactions ")
	b.WriteString("and suggest NEW keywords to add to existing categories.\n\n")
	b.WriteString("EXISTING CATEGORIES:\n")
	b.Write(names)
	b.WriteString("\n\nUNCATEGORIZED TRANSACTIONS:\n")
	for _, d := range descriptions {
		b.WriteString("- ")
		b.WriteString(d)
		b.WriteByte('\n')
	}
	b.WriteString(`
For each transaction that clearly matches an existing category, extract only the
merchant or service name (for example "MERCADONA", "ORANGE", "AMAZON"). Skip
transaction IDs, amounts, dates, card numbers and addresses. Only suggest a
keyword when you are confident about the category.

Return ONLY a JSON object mapping existing category names to arrays of new
keywords, with no explanations and no code fences:
{"Groceries": ["MERCADONA", "LIDL"], "Utilities": ["ORANGE"]}
`)
	return b.String()
}
