package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"github/itish2003/cricketbot/models"
)

// ErrEmptyText is returned for a chat request with no question in it.
var ErrEmptyText = errors.New("text must not be empty")

// RAGService interface defines methods for RAG operations
type RAGService interface {
	Chat(c context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	GetTotalChunks(c context.Context) (int, error)
}

// RAGOptions sizes the per-turn pipeline.
type RAGOptions struct {
	MemoryWindow int
	ContextDocs  int
}

// ragServiceImpl holds the dependencies it needs to do its job
type ragServiceImpl struct {
	llm       llms.Model
	retriever Retriever
	store     VectorStore
	sessions  SessionStore
	opts      RAGOptions

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewRAGService creates a new RAG service instance
func NewRAGService(llm llms.Model, retriever Retriever, store VectorStore, sessions SessionStore, opts RAGOptions) RAGService {
	if opts.MemoryWindow <= 0 {
		opts.MemoryWindow = DefaultMemoryWindow
	}
	if opts.ContextDocs <= 0 {
		opts.ContextDocs = DefaultContextDocs
	}
	return &ragServiceImpl{
		llm:       llm,
		retriever: retriever,
		store:     store,
		sessions:  sessions,
		opts:      opts,
		locks:     make(map[string]*sessionLock),
	}
}

// GetTotalChunks counts all the document chunks in the store.
func (r *ragServiceImpl) GetTotalChunks(c context.Context) (int, error) {
	return r.store.Count(c)
}

// Chat runs one conversation turn. A missing or unknown session ID starts a
// new session; a known one restores its memory. Turns of one session are
// processed one at a time.
func (r *ragServiceImpl) Chat(c context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	log.Printf("SERVICE: Chat request: '%s' (SessionID: '%s')", req.Text, req.SessionID)

	sessionID := req.SessionID
	var (
		turns []models.ConversationTurn
		found bool
	)
	if sessionID != "" {
		unlock := r.lockSession(sessionID)
		defer unlock()

		var err error
		turns, found, err = r.sessions.Load(c, sessionID)
		if err != nil {
			return nil, fmt.Errorf("could not load session: %w", err)
		}
	}
	if !found {
		if sessionID != "" {
			log.Printf("SERVICE: Session '%s' not found. Creating a new one.", sessionID)
		}
		// A fresh UUID cannot be contended, so it needs no lock.
		sessionID = uuid.New().String()
	}

	memory := NewMemoryWindow(r.opts.MemoryWindow, turns...)
	assistant := NewAssistant(r.llm, r.retriever, memory, r.opts.ContextDocs)

	response, err := assistant.HandleUserInput(c, req.Text)
	if err != nil {
		return nil, fmt.Errorf("could not generate response: %w", err)
	}

	if err := r.sessions.Save(c, sessionID, memory.Snapshot()); err != nil {
		log.Errorf("SERVICE: could not save session %s: %v", sessionID, err)
	}

	return &models.ChatResponse{
		Response:  response,
		SessionID: sessionID,
	}, nil
}

func (r *ragServiceImpl) lockSession(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sessionLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}
