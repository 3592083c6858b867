package inmemory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"coursechat/models"
)

// Store is a process-local session store. Suitable for single-instance
// deployments and tests; use the redis store when sessions must survive
// restarts.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string][]models.Exchange
	maxHistory int
}

func New(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	return &Store{sessions: make(map[string][]models.Exchange), maxHistory: maxHistory}
}

func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id, nil
}

func (s *Store) History(ctx context.Context, id string) ([]models.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[id]
	out := make([]models.Exchange, len(history))
	copy(out, history)
	return out, nil
}

func (s *Store) AddExchange(ctx context.Context, id string, ex models.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[id], ex)
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.sessions[id] = history
	return nil
}

func (s *Store) Clear(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
