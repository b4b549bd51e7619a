package tipster

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and local development.
type MemStore struct {
	mu       sync.RWMutex
	tipsters map[uuid.UUID]Tipster
}

func NewMemStore() *MemStore {
	return &MemStore{tipsters: make(map[uuid.UUID]Tipster)}
}

func (s *MemStore) Create(_ context.Context, t *Tipster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tipsters {
		if existing.UserID == t.UserID {
			return ErrExists
		}
	}
	s.tipsters[t.ID] = *t
	return nil
}

func (s *MemStore) Get(_ context.Context, id uuid.UUID) (*Tipster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tipsters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemStore) GetByUserID(_ context.Context, userID uuid.UUID) (*Tipster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tipsters {
		if t.UserID == userID {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) List(_ context.Context) ([]Tipster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tipster, 0, len(s.tipsters))
	for _, t := range s.tipsters {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Tipster) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
