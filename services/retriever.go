package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"github/itish2003/cricketbot/models"
)

// DefaultTopK is the number of results a retriever returns when the model
// asks for no limit.
const DefaultTopK = 4

// AttributeInfo describes a metadata attribute the query-construction model
// may filter on.
type AttributeInfo struct {
	Name        string
	Description string
	Type        string
}

// ArticleAttributes is the metadata schema of indexed article chunks.
// "summary" is declared as an integer, so the model's comparisons on it are
// never applied.
func ArticleAttributes() []AttributeInfo {
	return []AttributeInfo{
		{Name: "title", Description: "The name of the article", Type: "string"},
		{Name: "summary", Description: "The short summary of the article contents", Type: "integer"},
		{Name: "source_url", Description: "The web uri link to the article webpage", Type: "string"},
	}
}

// Comparison is one condition of a structured query.
type Comparison struct {
	Comparator string          `json:"comparator"`
	Attribute  string          `json:"attribute"`
	Value      json.RawMessage `json:"value"`
}

// StructuredQuery is the query-construction model's reading of a question.
type StructuredQuery struct {
	Query  string       `json:"query"`
	Filter []Comparison `json:"-"`
	Limit  int          `json:"limit"`
}

// Retriever fetches the chunks relevant to a query.
type Retriever interface {
	Invoke(ctx context.Context, query string) ([]models.SearchResult, error)
}

// SelfQueryRetriever asks an LLM to turn a natural-language query into a
// search string plus metadata filters, then runs that against the store.
type SelfQueryRetriever struct {
	llm                llms.Model
	embedder           embeddings.Embedder
	store              VectorStore
	contentDescription string
	attributes         []AttributeInfo
	topK               int
}

func NewSelfQueryRetriever(llm llms.Model, embedder embeddings.Embedder, store VectorStore, contentDescription string, attributes []AttributeInfo, topK int) *SelfQueryRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &SelfQueryRetriever{
		llm:                llm,
		embedder:           embedder,
		store:              store,
		contentDescription: contentDescription,
		attributes:         attributes,
		topK:               topK,
	}
}

// Invoke returns results ranked by similarity, possibly empty. Output the
// model produces that cannot be parsed degrades to an unfiltered search on
// the caller's query; provider failures are returned.
func (r *SelfQueryRetriever) Invoke(ctx context.Context, query string) ([]models.SearchResult, error) {
	prompt, err := queryConstructorPrompt.Format(map[string]any{
		"content":    r.contentDescription,
		"attributes": formatAttributes(r.attributes),
		"query":      query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render query constructor prompt: %w", err)
	}

	raw, err := llms.GenerateFromSinglePrompt(ctx, r.llm, prompt)
	if err != nil {
		return nil, fmt.Errorf("query construction failed: %w", err)
	}

	sq, err := ParseStructuredQuery(raw)
	if err != nil {
		log.WithField("output", raw).Warnf("RETRIEVER: could not parse structured query, searching unfiltered: %v", err)
		sq = StructuredQuery{}
	}

	searchText := strings.TrimSpace(sq.Query)
	if searchText == "" {
		searchText = query
	}
	filters := r.translate(sq.Filter)
	k := r.topK
	if sq.Limit > 0 && sq.Limit < k {
		k = sq.Limit
	}

	log.WithFields(log.Fields{
		"query":   searchText,
		"filters": filters,
		"k":       k,
	}).Debug("RETRIEVER: searching")

	vector, err := r.embedder.EmbedQuery(ctx, searchText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := r.store.Search(ctx, vector, k, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	return results, nil
}

// translate keeps the equality comparisons the store can apply: string
// values on declared string attributes. Everything else is dropped.
func (r *SelfQueryRetriever) translate(comparisons []Comparison) []models.MetadataFilter {
	var filters []models.MetadataFilter
	for _, c := range comparisons {
		attr, ok := r.attribute(c.Attribute)
		if !ok {
			log.Warnf("RETRIEVER: dropping filter on unknown attribute %q", c.Attribute)
			continue
		}
		if !strings.EqualFold(c.Comparator, "eq") {
			log.Warnf("RETRIEVER: dropping unsupported comparator %q on %s", c.Comparator, c.Attribute)
			continue
		}
		var value string
		if attr.Type != "string" || json.Unmarshal(c.Value, &value) != nil {
			log.Warnf("RETRIEVER: dropping non-string comparison on %s (declared %s)", attr.Name, attr.Type)
			continue
		}
		filters = append(filters, models.MetadataFilter{Field: attr.Name, Value: value})
	}
	return filters
}

func (r *SelfQueryRetriever) attribute(name string) (AttributeInfo, bool) {
	for _, attr := range r.attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return AttributeInfo{}, false
}

// ParseStructuredQuery extracts the JSON object from a model reply, which may
// be wrapped in a markdown code fence. A filter of "NO_FILTER" or null means
// no conditions.
func ParseStructuredQuery(text string) (StructuredQuery, error) {
	body, err := extractJSONObject(text)
	if err != nil {
		return StructuredQuery{}, err
	}

	var wire struct {
		Query  string          `json:"query"`
		Filter json.RawMessage `json:"filter"`
		Limit  *int            `json:"limit"`
	}
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return StructuredQuery{}, fmt.Errorf("invalid structured query: %w", err)
	}

	sq := StructuredQuery{Query: wire.Query}
	if wire.Limit != nil {
		sq.Limit = *wire.Limit
	}

	filter := strings.TrimSpace(string(wire.Filter))
	switch {
	case filter == "", filter == "null", filter == `"NO_FILTER"`, filter == `""`:
	case strings.HasPrefix(filter, "["):
		if err := json.Unmarshal(wire.Filter, &sq.Filter); err != nil {
			return StructuredQuery{}, fmt.Errorf("invalid filter list: %w", err)
		}
	case strings.HasPrefix(filter, "{"):
		var single Comparison
		if err := json.Unmarshal(wire.Filter, &single); err != nil {
			return StructuredQuery{}, fmt.Errorf("invalid filter: %w", err)
		}
		sq.Filter = []Comparison{single}
	default:
		log.Warnf("RETRIEVER: ignoring unsupported filter expression %s", filter)
	}
	return sq, nil
}

func extractJSONObject(text string) (string, error) {
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", errors.New("no JSON object in model output")
	}
	return text[start : end+1], nil
}
