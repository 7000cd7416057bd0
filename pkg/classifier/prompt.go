package classifier

import (
	"fmt"
	"strings"

	"github.com/flowbaker/csvclassifier/pkg/domain"
)

const DefaultSystemPrompt = `You are an expert at sorting data into the right category.
Analyze the content of the data and choose the single most appropriate category.
When classifying, consider:
- the main theme or subject of the data
- the relevance of its keywords
- its context and intent
Express the confidence as a value from 0.0 to 1.0 describing how certain the classification is.
Explain the reason for the classification briefly.`

const userPromptPrefix = "Classify the following data:\n"

// buildSystemPrompt appends the category listing to base. The category field
// must carry the schema enum token: the lower-case identifier, or the value in
// parentheses where the listing shows one.
func buildSystemPrompt(base, instructions string) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(base))
	b.WriteString("\n\nAvailable categories:\n")
	b.WriteString(instructions)
	b.WriteString("\n\nAnswer with the lower-case category identifier in the category field. ")
	b.WriteString("Where a category shows a value in parentheses, answer with that value instead.")

	return b.String()
}

// FormatRow flattens a row into "key: value" pairs joined by spaces, in
// column order.
func FormatRow(row domain.Row) string {
	parts := make([]string, len(row))
	for i, field := range row {
		parts[i] = fmt.Sprintf("%s: %s", field.Name, field.Value)
	}

	return strings.Join(parts, " ")
}
