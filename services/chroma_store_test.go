package services

import (
	"context"
	"fmt"
	"testing"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/cricketbot/models"
)

func TestDecodeChromaMetadata(t *testing.T) {
	var rec models.VectorRecord
	err := decodeChromaMetadata(map[string]any{
		"title":       "Ashes",
		"summary":     "The Ashes is a Test cricket series.",
		"source_url":  "https://en.wikipedia.org/wiki/The_Ashes",
		"chunk_index": 3,
		"doc_index":   2,
		"extra":       true,
	}, &rec)
	require.NoError(t, err)

	assert.Equal(t, models.ChunkMetadata{
		Title:     "Ashes",
		Summary:   "The Ashes is a Test cricket series.",
		SourceURL: "https://en.wikipedia.org/wiki/The_Ashes",
	}, rec.Metadata)
	assert.Equal(t, 3, rec.ChunkIndex)
	assert.Equal(t, 2, rec.DocIndex)
}

func TestDecodeChromaMetadata_TypeMismatch(t *testing.T) {
	var rec models.VectorRecord
	assert.Error(t, decodeChromaMetadata(map[string]any{"chunk_index": "three"}, &rec))
}

func TestWhereFromFilters(t *testing.T) {
	assert.Nil(t, whereFromFilters(nil))
	assert.NotNil(t, whereFromFilters([]models.MetadataFilter{{Field: "title", Value: "Ashes"}}))
	assert.NotNil(t, whereFromFilters([]models.MetadataFilter{
		{Field: "title", Value: "Ashes"},
		{Field: "source_url", Value: "https://en.wikipedia.org/wiki/The_Ashes"},
	}))
}

// upsertRecorder counts write calls; any other collection method panics.
type upsertRecorder struct {
	chromago.Collection
	upserts int
	adds    int
}

func (r *upsertRecorder) Upsert(_ context.Context, _ ...chromago.CollectionAddOption) error {
	r.upserts++
	return nil
}

func (r *upsertRecorder) Add(_ context.Context, _ ...chromago.CollectionAddOption) error {
	r.adds++
	return nil
}

func TestChromaStore_AddRecordsUpsertsInBatches(t *testing.T) {
	collection := &upsertRecorder{}
	store := &ChromaStore{collection: collection}

	records := make([]models.VectorRecord, 250)
	for i := range records {
		records[i] = models.VectorRecord{ID: fmt.Sprintf("id-%d", i), Content: "chunk", Embedding: []float32{1, 0}}
	}
	require.NoError(t, store.AddRecords(context.Background(), records))

	assert.Equal(t, 3, collection.upserts)
	assert.Zero(t, collection.adds)
}

func TestToSearchResults(t *testing.T) {
	results := toSearchResults(
		[]string{"Lord's is in London.", "", "The Oval hosts the final Test."},
		[]any{map[string]any{"title": "Lord's", "chunk_index": 1}, nil, nil},
		[]float64{0.25, 0.5, 1},
	)

	require.Len(t, results, 2)
	assert.Equal(t, "Lord's", results[0].Record.Metadata.Title)
	assert.Equal(t, 1, results[0].Record.ChunkIndex)
	assert.InDelta(t, 0.75, results[0].Score, 1e-9)
	assert.Equal(t, "The Oval hosts the final Test.", results[1].Record.Content)
	assert.Zero(t, results[1].Score)
}
