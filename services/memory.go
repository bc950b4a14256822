package services

import (
	"sync"

	"github/itish2003/cricketbot/models"
)

// DefaultMemoryWindow is the number of recent turns kept as conversational context.
const DefaultMemoryWindow = 5

// MemoryWindow is a bounded queue of the most recent conversation turns. When
// full, appending evicts the oldest turn.
type MemoryWindow struct {
	mu       sync.Mutex
	capacity int
	turns    []models.ConversationTurn
}

// NewMemoryWindow creates a window holding at most capacity turns, seeded with
// the most recent of the given turns.
func NewMemoryWindow(capacity int, seed ...models.ConversationTurn) *MemoryWindow {
	if capacity <= 0 {
		capacity = DefaultMemoryWindow
	}
	w := &MemoryWindow{
		capacity: capacity,
		turns:    make([]models.ConversationTurn, 0, capacity),
	}
	for _, turn := range seed {
		w.Append(turn)
	}
	return w
}

// Append adds a turn, evicting the oldest one if the window is full.
func (w *MemoryWindow) Append(turn models.ConversationTurn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.turns) == w.capacity {
		copy(w.turns, w.turns[1:])
		w.turns = w.turns[:len(w.turns)-1]
	}
	w.turns = append(w.turns, turn)
}

// Snapshot returns a copy of the turns, oldest first.
func (w *MemoryWindow) Snapshot() []models.ConversationTurn {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.ConversationTurn, len(w.turns))
	copy(out, w.turns)
	return out
}

func (w *MemoryWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

func (w *MemoryWindow) Capacity() int {
	return w.capacity
}
