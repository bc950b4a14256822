package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"

	"github/itish2003/cricketbot/models"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.AddRecords(context.Background(), []models.VectorRecord{
		{ID: "1", Content: "Cricket is played with a bat.", Embedding: []float32{1, 0}, Metadata: models.ChunkMetadata{Title: "Cricket", SourceURL: "https://en.wikipedia.org/wiki/Cricket"}},
		{ID: "2", Content: "The Ashes is a Test series.", Embedding: []float32{0.9, 0.1}, Metadata: models.ChunkMetadata{Title: "The Ashes", SourceURL: "https://en.wikipedia.org/wiki/The_Ashes"}},
		{ID: "3", Content: "Twenty20 is a short format.", Embedding: []float32{0.5, 0.5}, Metadata: models.ChunkMetadata{Title: "Twenty20", SourceURL: "https://en.wikipedia.org/wiki/Twenty20"}},
		{ID: "4", Content: "One Day Internationals last a day.", Embedding: []float32{0.2, 0.8}, Metadata: models.ChunkMetadata{Title: "ODI", SourceURL: "https://en.wikipedia.org/wiki/ODI"}},
		{ID: "5", Content: "Lord's is the home of cricket.", Embedding: []float32{0, 1}, Metadata: models.ChunkMetadata{Title: "Lord's", SourceURL: "https://en.wikipedia.org/wiki/Lord%27s"}},
	}))
	return store
}

func newTestRetriever(t *testing.T, llmOutput string, embedder *fakeEmbedder) *SelfQueryRetriever {
	t.Helper()
	return NewSelfQueryRetriever(fake.NewFakeLLM([]string{llmOutput}), embedder, seededStore(t), "Data about cricket", ArticleAttributes(), 0)
}

func TestSelfQueryRetriever_Unfiltered(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := newTestRetriever(t, "```json\n{\"query\": \"history of the ashes\", \"filter\": [], \"limit\": 0}\n```", embedder)

	results, err := r.Invoke(context.Background(), "tell me about the ashes")
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
	assert.Equal(t, "history of the ashes", embedder.lastQuery)
}

func TestSelfQueryRetriever_AppliesTitleFilterAndLimit(t *testing.T) {
	r := newTestRetriever(t, `{"query": "series", "filter": [{"comparator": "eq", "attribute": "title", "value": "The Ashes"}], "limit": 2}`, &fakeEmbedder{})

	results, err := r.Invoke(context.Background(), "the ashes")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Ashes", results[0].Record.Metadata.Title)
}

func TestSelfQueryRetriever_LimitBelowTopK(t *testing.T) {
	r := newTestRetriever(t, `{"query": "cricket", "filter": [], "limit": 2}`, &fakeEmbedder{})

	results, err := r.Invoke(context.Background(), "cricket")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSelfQueryRetriever_DropsSummaryAndUnsupportedComparisons(t *testing.T) {
	output := `{"query": "", "filter": [
		{"comparator": "eq", "attribute": "summary", "value": 3},
		{"comparator": "gt", "attribute": "title", "value": "A"},
		{"comparator": "eq", "attribute": "author", "value": "x"}
	]}`
	embedder := &fakeEmbedder{}
	r := newTestRetriever(t, output, embedder)

	results, err := r.Invoke(context.Background(), "what is cricket")
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
	assert.Equal(t, "what is cricket", embedder.lastQuery)
}

func TestSelfQueryRetriever_UnparseableOutputDegrades(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := newTestRetriever(t, "I think you want articles about cricket.", embedder)

	results, err := r.Invoke(context.Background(), "cricket bats")
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
	assert.Equal(t, "cricket bats", embedder.lastQuery)
}

func TestSelfQueryRetriever_NoMatches(t *testing.T) {
	r := newTestRetriever(t, `{"query": "x", "filter": [{"comparator": "eq", "attribute": "title", "value": "Baseball"}]}`, &fakeEmbedder{})

	results, err := r.Invoke(context.Background(), "baseball")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSelfQueryRetriever_ProviderErrorsPropagate(t *testing.T) {
	r := NewSelfQueryRetriever(fake.NewFakeLLM(nil), &fakeEmbedder{}, NewMemoryStore(), "Data about cricket", ArticleAttributes(), 4)
	_, err := r.Invoke(context.Background(), "q")
	require.Error(t, err)

	failing := &fakeEmbedder{err: errors.New("rate limited")}
	r = newTestRetriever(t, `{"query": "q", "filter": []}`, failing)
	_, err = r.Invoke(context.Background(), "q")
	assert.ErrorContains(t, err, "rate limited")
}

func TestParseStructuredQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    StructuredQuery
		filters int
		wantErr bool
	}{
		{name: "fenced", input: "```json\n{\"query\": \"a\", \"filter\": []}\n```", want: StructuredQuery{Query: "a"}},
		{name: "prose around object", input: "Sure! {\"query\": \"b\", \"filter\": \"NO_FILTER\", \"limit\": 3} Hope that helps.", want: StructuredQuery{Query: "b", Limit: 3}},
		{name: "null limit and filter", input: `{"query": "c", "filter": null, "limit": null}`, want: StructuredQuery{Query: "c"}},
		{name: "single comparison object", input: `{"query": "d", "filter": {"comparator": "eq", "attribute": "title", "value": "Cricket"}}`, want: StructuredQuery{Query: "d"}, filters: 1},
		{name: "function syntax ignored", input: `{"query": "e", "filter": "eq(\"title\", \"Cricket\")"}`, want: StructuredQuery{Query: "e"}},
		{name: "no json", input: "no structure here", wantErr: true},
		{name: "bad limit type", input: `{"query": "f", "limit": "two"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStructuredQuery(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Query, got.Query)
			assert.Equal(t, tt.want.Limit, got.Limit)
			assert.Len(t, got.Filter, tt.filters)
		})
	}
}

func TestQueryConstructorPromptListsAttributes(t *testing.T) {
	prompt, err := queryConstructorPrompt.Format(map[string]any{
		"content":    "Data about cricket",
		"attributes": formatAttributes(ArticleAttributes()),
		"query":      "who won the 2019 world cup",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, `"summary": {"description": "The short summary of the article contents", "type": "integer"}`)
	assert.Contains(t, prompt, "who won the 2019 world cup")
	assert.Contains(t, prompt, `"content": "Data about cricket"`)
}
