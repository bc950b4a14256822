package models

// RawDocument is a loaded article before chunking.
type RawDocument struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	SourceURL string `json:"source_url"`
	Content   string `json:"content"`
}

// ChunkMetadata is the source information attached to every chunk of a document.
type ChunkMetadata struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	SourceURL string `json:"source_url"`
}

// Get returns the value of a metadata field by its stored name.
func (m ChunkMetadata) Get(field string) (string, bool) {
	switch field {
	case "title":
		return m.Title, true
	case "summary":
		return m.Summary, true
	case "source_url":
		return m.SourceURL, true
	default:
		return "", false
	}
}

// Chunk is a bounded slice of a document's text. ChunkIndex is 1-based within
// its document and DocIndex is the 1-based ordinal of the document in the
// collection.
type Chunk struct {
	Content    string        `json:"content"`
	ChunkIndex int           `json:"chunk_index"`
	DocIndex   int           `json:"doc_index"`
	Metadata   ChunkMetadata `json:"meta_data"`
}

// VectorRecord is an embedded chunk as held by a vector store.
type VectorRecord struct {
	ID         string        `json:"id"`
	Embedding  []float32     `json:"-"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	ChunkIndex int           `json:"chunk_index"`
	DocIndex   int           `json:"doc_index"`
}

// SearchResult is a record returned by a similarity search. Higher scores are
// better; backends that only report rank leave Score at zero.
type SearchResult struct {
	Record VectorRecord `json:"record"`
	Score  float64      `json:"score"`
}

// MetadataFilter restricts a search to records whose Field equals Value.
type MetadataFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}
