package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"

	"github/itish2003/cricketbot/config"
	"github/itish2003/cricketbot/services"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg      *config.Config
	embedder embeddings.Embedder
	store    services.VectorStore
	local    *services.LocalLoader
	indexer  *services.IndexingService
	closers  []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, progress services.ProgressFunc) (*app, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	a := &app{cfg: cfg}

	var err error
	a.embedder, err = services.NewEmbedder(cfg.Embedding, httpClient)
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case "chroma":
		chroma, err := services.NewChromaStore(ctx, cfg.Store.ChromaURL, cfg.Store.Collection)
		if err != nil {
			return nil, err
		}
		a.store = chroma
		a.closers = append(a.closers, chroma)
	default:
		a.store = services.NewMemoryStore()
	}

	var loaders services.MultiLoader
	if cfg.Corpus.MaxDocs > 0 && cfg.Corpus.Query != "" {
		wiki := services.NewWikipediaLoader(cfg.Corpus.WikipediaURL, cfg.Corpus.Query, cfg.Corpus.MaxDocs, cfg.Corpus.MaxDocChars, httpClient)
		wiki.OnProgress = progress
		loaders = append(loaders, wiki)
	}
	if cfg.Corpus.LocalDir != "" {
		a.local, err = services.NewLocalLoader(cfg.Corpus.LocalDir, cfg.Corpus.Include)
		if err != nil {
			a.Close()
			return nil, err
		}
		loaders = append(loaders, a.local)
	}

	a.indexer = services.NewIndexingService(a.embedder, a.store, loaders, services.IndexingOptions{
		ChunkSize:     cfg.Chunking.Size,
		ChunkOverlap:  cfg.Chunking.Overlap,
		MaxRetries:    cfg.Index.MaxRetries,
		RetryBackoff:  cfg.Index.RetryBackoff,
		ReuseExisting: cfg.Store.ReuseExisting,
	})
	return a, nil
}

// start builds the models before the index, so a bad provider setup fails
// before the corpus is loaded and embedded.
func (a *app) start(ctx context.Context) (services.RAGService, error) {
	ragService, err := a.ragService(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := a.buildIndex(ctx); err != nil {
		return nil, err
	}
	a.watch(ctx)
	return ragService, nil
}

// buildIndex loads the corpus and fills the vector store.
func (a *app) buildIndex(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := a.indexer.Run(ctx)
	if err != nil {
		return 0, err
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Printf("Initialization complete: %d records indexed.", n)
	return n, nil
}

// watch keeps the local corpus in sync until ctx ends, when enabled.
func (a *app) watch(ctx context.Context) {
	if a.local == nil || !a.cfg.Corpus.Watch {
		return
	}
	go func() {
		if err := a.indexer.WatchDirectory(ctx, a.local); err != nil {
			log.Errorf("WATCHER ERROR: %v", err)
		}
	}()
}

// ragService builds the chat models, retriever and session store.
func (a *app) ragService(ctx context.Context) (services.RAGService, error) {
	httpClient := &http.Client{}

	chatModel, err := services.NewChatModel(ctx, a.cfg.LLM, httpClient)
	if err != nil {
		return nil, err
	}
	queryModel, err := services.NewQueryModel(ctx, a.cfg.LLM, httpClient)
	if err != nil {
		return nil, err
	}

	retriever := services.NewSelfQueryRetriever(
		queryModel,
		a.embedder,
		a.store,
		a.cfg.Retrieval.ContentDescription,
		services.ArticleAttributes(),
		a.cfg.Retrieval.TopK,
	)

	var sessions services.SessionStore
	switch a.cfg.Memory.Backend {
	case "bolt":
		bolt, err := services.NewBoltSessionStore(a.cfg.Memory.Path, a.cfg.Memory.MaxSessions)
		if err != nil {
			return nil, err
		}
		sessions = bolt
	default:
		sessions = services.NewMemorySessionStore(a.cfg.Memory.MaxSessions)
	}
	a.closers = append(a.closers, sessions)

	return services.NewRAGService(chatModel, retriever, a.store, sessions, services.RAGOptions{
		MemoryWindow: a.cfg.Memory.Window,
		ContextDocs:  a.cfg.Retrieval.ContextDocs,
	}), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to release resources: %w", err)
	}
	return nil
}
