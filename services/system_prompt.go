package services

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github/itish2003/cricketbot/models"
)

// GetSystemPrompt defines the core instructions for the cricket assistant.
func GetSystemPrompt() string {
	return `You are an intelligent assistant that answers all questions about cricket using contextual information from Wikipedia. Your responses should be conversational and informative, providing clear and concise explanations. When relevant, include the source URL of the articles to give users additional reading material.

Always aim to:
1. Answer the question directly and clearly.
2. Provide context and background information when useful but do not give irrelevant information and answer to the point.
3. Suggest related topics or additional points of interest.
4. Be polite and engaging in your responses.
5. Remove the unnecessary context from the context provided if irrelevant to the question

Now, let's get started!`
}

var queryRewritePrompt = prompts.NewPromptTemplate(`User's Question: {{.input}}
Previous conversation memory {{.memory}}
Generate only a query sentence and nothing else from the user's question to fetch from the data from embeddings. If the user's question does not have enough context then create a query based on the Knowledge Base.`,
	[]string{"input", "memory"})

var answerPrompt = prompts.NewPromptTemplate(`{{.system}}

User's Question: {{.input}}

Context Information: {{.context}}

Previous Conversation memory: {{.memory}}

Your Response:`,
	[]string{"system", "input", "context", "memory"})

var queryConstructorPrompt = prompts.NewPromptTemplate(`Your goal is to structure the user's query to match the request schema provided below.

<< Structured Request Schema >>
When responding use a markdown code snippet with a JSON object formatted in the following schema:

`+"```json"+`
{
    "query": string \ text string to compare to document contents
    "filter": array \ list of {"comparator": string, "attribute": string, "value": string} conditions, empty if no filter applies
    "limit": int \ the number of documents to retrieve, 0 if not specified
}
`+"```"+`

The query string should contain only text that is expected to match the contents of documents. Any conditions in the filter should not be mentioned in the query as well.

A condition compares an attribute with a value. Allowed comparators: eq, ne, gt, gte, lt, lte, contain, like.

Make sure that you only use the comparators listed above and no others.
Make sure that filters only refer to attributes that exist in the data source.
Make sure that filters take into account the descriptions of attributes and only make comparisons that are feasible given the type of data being stored.
Make sure that filters are only used as needed. If there are no filters that should be applied return an empty list.

<< Data Source >>
`+"```json"+`
{
    "content": "{{.content}}",
    "attributes": {
{{.attributes}}
    }
}
`+"```"+`

<< User Query >>
{{.query}}

Structured Request:`,
	[]string{"content", "attributes", "query"})

// formatMemory renders conversation turns oldest first.
func formatMemory(turns []models.ConversationTurn) string {
	if len(turns) == 0 {
		return "None"
	}
	var sb strings.Builder
	for i, turn := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Question: %s\nResponse: %s", turn.Question, turn.Response)
	}
	return sb.String()
}

func formatContext(results []models.SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s", i+1, r.Record.Metadata.Title, r.Record.Metadata.SourceURL, r.Record.Content)
	}
	return sb.String()
}

func formatAttributes(attributes []AttributeInfo) string {
	lines := make([]string, len(attributes))
	for i, attr := range attributes {
		lines[i] = fmt.Sprintf(`        %q: {"description": %q, "type": %q}`, attr.Name, attr.Description, attr.Type)
	}
	return strings.Join(lines, ",\n")
}
