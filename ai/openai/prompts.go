package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/corpus/ai"
)

const enrichmentResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {
      "type": "string"
    },
    "classification": {
      "type": "string"
    },
    "keywords": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[a-z0-9]+( [a-z0-9]+)*$"}
    },
    "tags": {
      "type": "array",
      "items": {"type": "string"}
    },
    "sentiment": {
      "type": "string"
    }
  },
  "required": ["summary", "classification", "keywords"],
  "additionalProperties": false
}`

const enrichmentPromptTemplate = `You analyze short pieces of website content and return structured metadata as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "summary" is one or two sentences describing what the content says.
- "classification" must match exactly one of the listed values: %s.
- "keywords" are lowercase, 1-3 words each, most relevant first. Include only terms present in or clearly implied by the text.
- "tags" are short free-form topical labels; omit the field or return [] when none apply.
- "sentiment" must match exactly one of: %s. Omit when the text is purely factual.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input:
field: copy
text: Buy the new SoundPod Pro today and save 20%%.
Output:
{
  "summary": "A promotion offering 20%% off the SoundPod Pro.",
  "classification": "promotion",
  "keywords": ["soundpod pro", "discount"],
  "tags": ["audio"],
  "sentiment": "positive"
}

Example:
Input:
field: disclaimers[0][0]
text: Offer valid in participating stores only. Terms apply.
Output:
{
  "summary": "A disclaimer limiting the offer to participating stores under additional terms.",
  "classification": "legal",
  "keywords": ["offer terms", "participating stores"],
  "sentiment": "neutral"
}`

// buildSystemPrompt creates the system prompt with the allowed label sets
// embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(enrichmentPromptTemplate,
		enrichmentResponseSchema,
		strings.Join(ai.Classifications, ", "),
		strings.Join(ai.Sentiments, ", "))
}

// buildUserPrompt renders one request as the user message. Context lines come
// first so the model reads them before the text.
func buildUserPrompt(req ai.Request) string {
	var b strings.Builder
	if req.FieldKey != "" {
		fmt.Fprintf(&b, "field: %s\n", req.FieldKey)
	}
	if req.Locale != "" {
		fmt.Fprintf(&b, "locale: %s\n", req.Locale)
	}
	if req.Model != "" {
		fmt.Fprintf(&b, "content model: %s\n", req.Model)
	}
	for _, k := range sortedKeys(req.Facets) {
		fmt.Fprintf(&b, "%s: %s\n", k, req.Facets[k])
	}
	fmt.Fprintf(&b, "text: %s", req.Text)
	return b.String()
}
