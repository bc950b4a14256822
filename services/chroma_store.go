package services

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	log "github.com/sirupsen/logrus"

	"github/itish2003/cricketbot/models"
)

const chromaAddBatchSize = 100

// ChromaStore is a VectorStore backed by a Chroma collection. Embeddings are
// always computed by the caller; the collection's own embedding function is
// never used.
type ChromaStore struct {
	client     chromago.Client
	collection chromago.Collection
}

// NewChromaStore connects to the Chroma server at baseURL and gets or creates
// the named collection.
func NewChromaStore(ctx context.Context, baseURL, collectionName string) (*ChromaStore, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	log.Printf("STORE: Getting or creating collection '%s' at %s", collectionName, baseURL)
	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Wikipedia article chunks"),
				chromago.NewStringAttribute("created_by", "cricketbot"),
				chromago.NewStringAttribute("hnsw:space", "cosine"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to get or create collection %q: %w", collectionName, err)
	}

	return &ChromaStore{client: client, collection: collection}, nil
}

// AddRecords upserts, so re-adding a record ID replaces the stored chunk.
func (c *ChromaStore) AddRecords(ctx context.Context, records []models.VectorRecord) error {
	for start := 0; start < len(records); start += chromaAddBatchSize {
		batch := records[start:min(start+chromaAddBatchSize, len(records))]

		ids := make([]chromago.DocumentID, len(batch))
		texts := make([]string, len(batch))
		embs := make([]embeddings.Embedding, len(batch))
		metas := make([]chromago.DocumentMetadata, len(batch))
		for i, rec := range batch {
			ids[i] = chromago.DocumentID(rec.ID)
			texts[i] = rec.Content
			embs[i] = embeddings.NewEmbeddingFromFloat32(rec.Embedding)
			metas[i] = chromago.NewDocumentMetadata(
				chromago.NewStringAttribute("title", rec.Metadata.Title),
				chromago.NewStringAttribute("summary", rec.Metadata.Summary),
				chromago.NewStringAttribute("source_url", rec.Metadata.SourceURL),
				chromago.NewIntAttribute("chunk_index", int64(rec.ChunkIndex)),
				chromago.NewIntAttribute("doc_index", int64(rec.DocIndex)),
			)
		}

		err := c.collection.Upsert(ctx,
			chromago.WithIDs(ids...),
			chromago.WithTexts(texts...),
			chromago.WithEmbeddings(embs...),
			chromago.WithMetadatas(metas...),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert %d records to chromadb: %w", len(batch), err)
		}
	}
	return nil
}

func (c *ChromaStore) Search(ctx context.Context, embedding []float32, k int, filters []models.MetadataFilter) ([]models.SearchResult, error) {
	if k <= 0 {
		return []models.SearchResult{}, nil
	}

	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithNResults(k),
	}
	if where := whereFromFilters(filters); where != nil {
		opts = append(opts, chromago.WithWhereQuery(where))
	}

	results, err := c.collection.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	if len(documentGroups) == 0 {
		return []models.SearchResult{}, nil
	}

	contents := make([]string, len(documentGroups[0]))
	metas := make([]any, len(documentGroups[0]))
	distances := make([]float64, len(documentGroups[0]))
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	for i, doc := range documentGroups[0] {
		contents[i] = doc.ContentString()
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			metas[i] = metadataGroups[0][i]
		}
		distances[i] = 1
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			distances[i] = float64(distanceGroups[0][i])
		}
	}
	return toSearchResults(contents, metas, distances), nil
}

// toSearchResults turns one query's columns into results. The collection uses
// cosine distance, so 1 - distance is the same similarity MemoryStore reports.
func toSearchResults(contents []string, metas []any, distances []float64) []models.SearchResult {
	out := []models.SearchResult{}
	for i, content := range contents {
		if content == "" {
			continue
		}
		rec := models.VectorRecord{Content: content}
		if metas[i] != nil {
			// DocumentMetadata has no exported accessor for all values; a
			// JSON round trip recovers them.
			if err := decodeChromaMetadata(metas[i], &rec); err != nil {
				log.Warnf("STORE: could not decode metadata for result %d: %v", i, err)
			}
		}
		out = append(out, models.SearchResult{Record: rec, Score: 1 - distances[i]})
	}
	return out
}

func (c *ChromaStore) Count(ctx context.Context) (int, error) {
	count, err := c.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}

func (c *ChromaStore) DeleteBySource(ctx context.Context, sourceURL string) error {
	where := chromago.EqString("source_url", sourceURL)
	if err := c.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete records for %s: %w", sourceURL, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *ChromaStore) Close() error {
	return c.client.Close()
}

func whereFromFilters(filters []models.MetadataFilter) chromago.WhereClause {
	switch len(filters) {
	case 0:
		return nil
	case 1:
		return chromago.EqString(filters[0].Field, filters[0].Value)
	}
	clauses := make([]chromago.WhereClause, len(filters))
	for i, f := range filters {
		clauses[i] = chromago.EqString(f.Field, f.Value)
	}
	return chromago.And(clauses...)
}

type chromaMetadata struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	SourceURL  string `json:"source_url"`
	ChunkIndex int    `json:"chunk_index"`
	DocIndex   int    `json:"doc_index"`
}

func decodeChromaMetadata(metadata any, rec *models.VectorRecord) error {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	var meta chromaMetadata
	if err := json.Unmarshal(jsonBytes, &meta); err != nil {
		return err
	}
	rec.Metadata = models.ChunkMetadata{
		Title:     meta.Title,
		Summary:   meta.Summary,
		SourceURL: meta.SourceURL,
	}
	rec.ChunkIndex = meta.ChunkIndex
	rec.DocIndex = meta.DocIndex
	return nil
}
