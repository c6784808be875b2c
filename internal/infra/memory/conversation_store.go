package memory

import (
	"sync"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/app"
)

// ConversationStore keeps per-actor conversation state in process memory.
// Conversations are transient by design; nothing here survives a restart.
type ConversationStore struct {
	mu     sync.RWMutex
	states map[int64]app.State
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{states: make(map[int64]app.State)}
}

func (s *ConversationStore) Get(actorID int64) (app.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[actorID]
	return state, ok
}

func (s *ConversationStore) Put(actorID int64, state app.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[actorID] = state
}

func (s *ConversationStore) Clear(actorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, actorID)
}

// Active reports whether the actor has a live conversation; the reminder
// scheduler uses this to suppress notices after the conversation moved on.
func (s *ConversationStore) Active(actorID int64) bool {
	_, ok := s.Get(actorID)
	return ok
}
