package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// BuildEntityPrompt embeds the document text in the fixed extraction instruction.
// The key list and its order come from constants.FieldNames.
func BuildEntityPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are an information extraction assistant.\n")
	b.WriteString("From the following document text, extract the information below and return it in JSON with these exact keys:\n")
	for _, name := range constants.FieldNames() {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("\nIf a field is not present, set its value to \"")
	b.WriteString(constants.NotFound)
	b.WriteString("\".\n")
	b.WriteString("Return valid JSON only (no markdown, no explanations).\n\n")
	b.WriteString("Text:\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}
