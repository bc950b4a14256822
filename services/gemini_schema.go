package services

import "google.golang.org/genai"

// StructuredQuerySchema constrains Gemini's query-construction output to the
// JSON shape SelfQueryRetriever parses.
func StructuredQuerySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"query": {
				Type:        genai.TypeString,
				Description: "Text to match against document contents. Empty when only the filter applies.",
			},
			"filter": {
				Type:        genai.TypeArray,
				Description: "Conditions on document metadata. Leave empty when the question names no specific article.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"comparator": {
							Type:        genai.TypeString,
							Description: "Comparison operator.",
							Enum:        []string{"eq", "ne", "gt", "gte", "lt", "lte", "contain", "like"},
						},
						"attribute": {
							Type:        genai.TypeString,
							Description: "Name of the metadata attribute to compare.",
						},
						"value": {
							Type:        genai.TypeString,
							Description: "Value the attribute is compared with.",
						},
					},
					Required: []string{"comparator", "attribute", "value"},
				},
			},
			"limit": {
				Type:        genai.TypeInteger,
				Description: "Number of documents to retrieve. Zero means no limit was requested.",
			},
		},
		Required: []string{"query", "filter"},
	}
}
