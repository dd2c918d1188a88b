package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every contract request
const SystemPrompt = "You are a contract analyst working for the party that received this contract. " +
	"You read commercial agreements and report on them as strict JSON. You never invent clauses that are not in the document."

// IdentifyPrompt asks for the document class and the counterparty
func IdentifyPrompt() string {
	return `Read the attached contract and identify it.

Respond with a single JSON object and nothing else:
{
  "document_type": "<short classification, e.g. supply agreement, NDA, distribution contract>",
  "seller_company": "<legal name of the selling or supplying party, empty string if not stated>"
}`
}

// AssessPrompt asks for the four health dimensions, one explanation per
// dimension and an overall recommendation. background is a plain-text digest
// of the counterparty checks and may be empty.
func AssessPrompt(documentType, seller, background string) string {
	var b strings.Builder

	b.WriteString("Assess the attached contract from the receiving party's point of view.\n\n")
	if documentType != "" {
		fmt.Fprintf(&b, "Document type: %s\n", documentType)
	}
	if seller != "" {
		fmt.Fprintf(&b, "Counterparty: %s\n", seller)
	}
	if background != "" {
		b.WriteString("\nBackground checks on the counterparty:\n")
		b.WriteString(background)
		b.WriteString("\n")
	}

	b.WriteString(`
Rate four dimensions as integers from 0 to 100:
- mad (destruction risk): how badly this contract could damage or end our business. Higher is more dangerous.
- mao (mutual advantage): direct economic benefit to both sides. Higher is better.
- maa (attrition depth): how deeply the parties are bound to each other. Higher means deeper commitment.
- map (strategic potential): long-term strategic value of the relationship. Higher is better.

Respond with a single JSON object and nothing else:
{
  "health_dimensions": {"mad": 0, "mao": 0, "maa": 0, "map": 0},
  "dimension_explanations": {"mad": "...", "mao": "...", "maa": "...", "map": "..."},
  "overall_recommendation": "..."
}`)

	return b.String()
}
