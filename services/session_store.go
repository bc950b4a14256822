package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"

	"github/itish2003/cricketbot/models"
)

// SessionStore persists each session's conversation memory between requests.
type SessionStore interface {
	// Load returns the stored turns and whether the session exists.
	Load(ctx context.Context, id string) ([]models.ConversationTurn, bool, error)
	Save(ctx context.Context, id string, turns []models.ConversationTurn) error
	Close() error
}

// DefaultMaxSessions bounds how many sessions a store keeps before evicting.
const DefaultMaxSessions = 1000

// MemorySessionStore keeps the most recently used sessions in process memory.
type MemorySessionStore struct {
	sessions *lru.Cache[string, []models.ConversationTurn]
}

// NewMemorySessionStore keeps at most maxSessions sessions; a non-positive
// value means DefaultMaxSessions.
func NewMemorySessionStore(maxSessions int) *MemorySessionStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, []models.ConversationTurn](maxSessions)
	return &MemorySessionStore{sessions: cache}
}

func (s *MemorySessionStore) Load(_ context.Context, id string) ([]models.ConversationTurn, bool, error) {
	turns, ok := s.sessions.Get(id)
	if !ok {
		return nil, false, nil
	}
	return append([]models.ConversationTurn(nil), turns...), true, nil
}

func (s *MemorySessionStore) Save(_ context.Context, id string, turns []models.ConversationTurn) error {
	s.sessions.Add(id, append([]models.ConversationTurn{}, turns...))
	return nil
}

// Len reports how many sessions are held.
func (s *MemorySessionStore) Len() int {
	return s.sessions.Len()
}

func (s *MemorySessionStore) Close() error {
	return nil
}

var bucketSessions = []byte("sessions")

// BoltSessionStore keeps sessions in a bbolt file, one JSON value per
// session ID, so conversations survive restarts. Once more than maxSessions
// are stored, the least recently saved ones are deleted.
type BoltSessionStore struct {
	db          *bbolt.DB
	maxSessions int
}

type boltSession struct {
	Seq   uint64                    `json:"seq"`
	Turns []models.ConversationTurn `json:"turns"`
}

func NewBoltSessionStore(path string, maxSessions int) (*BoltSessionStore, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketSessions, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltSessionStore{db: db, maxSessions: maxSessions}, nil
}

func (s *BoltSessionStore) Load(_ context.Context, id string) ([]models.ConversationTurn, bool, error) {
	var (
		session boltSession
		found   bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return session.Turns, found, nil
}

func (s *BoltSessionStore) Save(_ context.Context, id string, turns []models.ConversationTurn) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(boltSession{Seq: seq, Turns: turns})
		if err != nil {
			return err
		}
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}
		return s.evict(b)
	})
}

// evict deletes the least recently saved sessions beyond maxSessions.
func (s *BoltSessionStore) evict(b *bbolt.Bucket) error {
	type entry struct {
		key []byte
		seq uint64
	}
	var entries []entry
	err := b.ForEach(func(k, v []byte) error {
		var session boltSession
		if err := json.Unmarshal(v, &session); err != nil {
			return fmt.Errorf("corrupt session %s: %w", k, err)
		}
		entries = append(entries, entry{key: append([]byte(nil), k...), seq: session.Seq})
		return nil
	})
	if err != nil || len(entries) <= s.maxSessions {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	for _, e := range entries[:len(entries)-s.maxSessions] {
		if err := b.Delete(e.key); err != nil {
			return err
		}
	}
	return nil
}

// Len reports how many sessions are stored.
func (s *BoltSessionStore) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketSessions).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltSessionStore) Close() error {
	return s.db.Close()
}
