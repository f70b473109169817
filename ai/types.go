package ai

// Classifications defines the valid content categories for enriched
// fragments. Enrichment responses outside this set fail validation.
var Classifications = []string{
	"editorial",
	"legal",
	"marketing",
	"navigation",
	"pricing",
	"product",
	"promotion",
	"support",
	"technical",
}

// Sentiments defines the valid sentiment labels.
var Sentiments = []string{
	"positive",
	"neutral",
	"negative",
}

// Request carries one fragment's text and context to an enricher.
type Request struct {
	// Text is the cleansed fragment text.
	Text string

	// FieldKey identifies which field of the source node the text came from.
	FieldKey string

	// Locale is the fragment's locale in canonical xx_YY form, when known.
	Locale string

	// Model is the content model of the owning node, when known.
	Model string

	// Facets are contextual key/value attributes of the owning node.
	Facets map[string]string
}

// Enrichment is the structured result produced for one fragment.
type Enrichment struct {
	// Summary is a one-to-two sentence synopsis of the text.
	Summary string

	// Classification is one of Classifications.
	Classification string

	// Keywords are lowercase search keywords, most relevant first.
	Keywords []string

	// Tags are free-form topical labels.
	Tags []string

	// Sentiment is one of Sentiments.
	Sentiment string
}

// Validate checks an enrichment against the allowed label sets.
// An empty sentiment is tolerated; an empty classification is not.
func (e *Enrichment) Validate() error {
	if e.Summary == "" {
		return ErrInvalidResponse
	}
	if !contains(Classifications, e.Classification) {
		return ErrInvalidResponse
	}
	if e.Sentiment != "" && !contains(Sentiments, e.Sentiment) {
		return ErrInvalidResponse
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
