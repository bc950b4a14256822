package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"

	"github/itish2003/cricketbot/models"
)

// ErrNoChunks is returned when the loaded documents produce nothing to index.
var ErrNoChunks = errors.New("no chunks to index")

// IndexBuildError reports which stage of an index build failed.
type IndexBuildError struct {
	Stage string // "load", "chunk", "embed", "store"
	Err   error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("index build failed at %s stage: %v", e.Stage, e.Err)
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}

// IndexingOptions configures an IndexingService.
type IndexingOptions struct {
	ChunkSize     int
	ChunkOverlap  int
	MaxRetries    int
	RetryBackoff  time.Duration
	ReuseExisting bool
}

// IndexingService chunks, embeds and stores documents.
type IndexingService struct {
	embedder embeddings.Embedder
	store    VectorStore
	loader   DocumentLoader
	opts     IndexingOptions
}

// NewIndexingService creates a new indexing service. loader may be nil when
// only Build and WatchDirectory are used.
func NewIndexingService(embedder embeddings.Embedder, store VectorStore, loader DocumentLoader, opts IndexingOptions) *IndexingService {
	return &IndexingService{
		embedder: embedder,
		store:    store,
		loader:   loader,
		opts:     opts,
	}
}

// Run loads the corpus and builds the index from it. With ReuseExisting set
// and a non-empty store the build is skipped. It returns the number of records
// in the store afterwards.
func (s *IndexingService) Run(ctx context.Context) (int, error) {
	if s.opts.ReuseExisting {
		count, err := s.store.Count(ctx)
		if err != nil {
			return 0, &IndexBuildError{Stage: "store", Err: err}
		}
		if count > 0 {
			log.Printf("INDEXER: Reusing existing index with %d records.", count)
			return count, nil
		}
	}

	if s.loader == nil {
		return 0, &IndexBuildError{Stage: "load", Err: errors.New("no document loader configured")}
	}
	log.Println("INDEXER: Loading documents...")
	docs, err := s.loader.Load(ctx)
	if err != nil {
		return 0, &IndexBuildError{Stage: "load", Err: err}
	}
	return s.Build(ctx, docs)
}

// Build chunks every document (doc_index = position + 1), embeds all chunks
// in one batch and adds them to the store in (doc_index, chunk_index) order,
// replacing whatever was stored for the same sources.
func (s *IndexingService) Build(ctx context.Context, docs []models.RawDocument) (int, error) {
	var chunks []models.Chunk
	for i, doc := range docs {
		chunks = append(chunks, ChunkDocument(doc, i+1, s.opts.ChunkSize, s.opts.ChunkOverlap)...)
	}
	if len(chunks) == 0 {
		return 0, &IndexBuildError{Stage: "chunk", Err: ErrNoChunks}
	}
	log.Printf("INDEXER: Split %d documents into %d chunks.", len(docs), len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var vectors [][]float32
	err := retry(ctx, "embed", s.opts.MaxRetries, s.opts.RetryBackoff, func(ctx context.Context) error {
		var err error
		vectors, err = s.embedder.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		return 0, &IndexBuildError{Stage: "embed", Err: err}
	}
	if len(vectors) != len(chunks) {
		return 0, &IndexBuildError{
			Stage: "embed",
			Err:   fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)),
		}
	}

	records := make([]models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.VectorRecord{
			ID:         RecordID(chunk.Metadata.SourceURL, chunk.ChunkIndex),
			Embedding:  vectors[i],
			Content:    chunk.Content,
			Metadata:   chunk.Metadata,
			ChunkIndex: chunk.ChunkIndex,
			DocIndex:   chunk.DocIndex,
		}
	}

	// Chunks left over from a longer earlier version of a document would
	// otherwise outlive the rebuild.
	sources := make([]string, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, chunk := range chunks {
		if src := chunk.Metadata.SourceURL; !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}

	err = retry(ctx, "store", s.opts.MaxRetries, s.opts.RetryBackoff, func(ctx context.Context) error {
		for _, src := range sources {
			if err := s.store.DeleteBySource(ctx, src); err != nil {
				return err
			}
		}
		return s.store.AddRecords(ctx, records)
	})
	if err != nil {
		return 0, &IndexBuildError{Stage: "store", Err: err}
	}
	log.Printf("INDEXER: All data has been processed and stored (%d records).", len(records))
	return len(records), nil
}

// RecordID derives a stable record ID from a chunk's source and position, so
// indexing the same document twice overwrites rather than duplicates.
func RecordID(sourceURL string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL+"#"+strconv.Itoa(chunkIndex))).String()
}

// IndexFile replaces everything stored for path with a fresh index of it.
func (s *IndexingService) IndexFile(ctx context.Context, path string) (int, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return 0, &IndexBuildError{Stage: "load", Err: err}
	}
	if err := s.store.DeleteBySource(ctx, doc.SourceURL); err != nil {
		return 0, &IndexBuildError{Stage: "store", Err: err}
	}
	if doc.Content == "" {
		return 0, nil
	}
	return s.Build(ctx, []models.RawDocument{doc})
}

// RemoveFile deletes every record stored for path.
func (s *IndexingService) RemoveFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return s.store.DeleteBySource(ctx, FileSourceURL(abs))
}

// WatchDirectory keeps the index in sync with the loader's directory until ctx
// is cancelled. Created or written files are re-indexed; removed or renamed
// files are dropped from the store.
func (s *IndexingService) WatchDirectory(ctx context.Context, loader *LocalLoader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(loader.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", loader.Root(), err)
	}
	log.Printf("WATCHER: Watching directory: %s", loader.Root())

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, watcher, loader, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("WATCHER ERROR: %v", err)
		case <-ctx.Done():
			log.Println("WATCHER: Context cancelled, shutting down watcher.")
			return nil
		}
	}
}

func (s *IndexingService) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, loader *LocalLoader, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				log.Warnf("WATCHER WARN: could not watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}
	if !loader.Matches(event.Name) {
		return
	}
	log.Debugf("WATCHER EVENT: %s", event)

	// Editors often save through a temp file and rename, which shows up as
	// Create and Write events; both mean re-index.
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		log.Printf("WATCHER: File modified/created: %s. Re-indexing...", event.Name)
		if _, err := s.IndexFile(ctx, event.Name); err != nil {
			log.Errorf("WATCHER ERROR: Failed to process file %s: %v", event.Name, err)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		log.Printf("WATCHER: File removed/renamed: %s. Removing from index...", event.Name)
		if err := s.RemoveFile(ctx, event.Name); err != nil {
			log.Errorf("WATCHER ERROR: Failed to delete records for %s: %v", event.Name, err)
		}
	}
}
