package services

import (
	"context"
	"math"
	"sort"
	"sync"

	"github/itish2003/cricketbot/models"
)

// VectorStore is a similarity-searchable collection of embedded chunks.
type VectorStore interface {
	AddRecords(ctx context.Context, records []models.VectorRecord) error
	// Search returns at most k records ranked by similarity to embedding,
	// restricted to records matching every filter.
	Search(ctx context.Context, embedding []float32, k int, filters []models.MetadataFilter) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	DeleteBySource(ctx context.Context, sourceURL string) error
}

// MemoryStore keeps records in process memory and ranks them by cosine
// similarity.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.VectorRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AddRecords appends records; a record whose ID is already stored replaces
// the existing one in place.
func (s *MemoryStore) AddRecords(_ context.Context, records []models.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	positions := make(map[string]int, len(s.records))
	for i, rec := range s.records {
		if rec.ID != "" {
			positions[rec.ID] = i
		}
	}
	for _, rec := range records {
		if i, ok := positions[rec.ID]; ok && rec.ID != "" {
			s.records[i] = rec
			continue
		}
		if rec.ID != "" {
			positions[rec.ID] = len(s.records)
		}
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, embedding []float32, k int, filters []models.MetadataFilter) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []models.SearchResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.SearchResult, 0, len(s.records))
	for _, rec := range s.records {
		if !matchesFilters(rec.Metadata, filters) {
			continue
		}
		results = append(results, models.SearchResult{
			Record: rec,
			Score:  cosine(embedding, rec.Embedding),
		})
	}

	// Stable so equal scores keep insertion (doc_index, chunk_index) order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) DeleteBySource(_ context.Context, sourceURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.Metadata.SourceURL != sourceURL {
			kept = append(kept, rec)
		}
	}
	// Clear the tail so dropped embeddings can be collected.
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = models.VectorRecord{}
	}
	s.records = kept
	return nil
}

func matchesFilters(meta models.ChunkMetadata, filters []models.MetadataFilter) bool {
	for _, f := range filters {
		value, ok := meta.Get(f.Field)
		if !ok || value != f.Value {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
