package follow

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and local development.
type MemStore struct {
	mu    sync.RWMutex
	edges map[uuid.UUID]Follow
}

func NewMemStore() *MemStore {
	return &MemStore{edges: make(map[uuid.UUID]Follow)}
}

func (s *MemStore) Create(_ context.Context, f *Follow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges {
		if e.UserID == f.UserID && e.TipsterID == f.TipsterID {
			return ErrAlreadyFollowing
		}
	}
	s.edges[f.ID] = *f
	return nil
}

func (s *MemStore) Delete(_ context.Context, userID, tipsterID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.edges {
		if e.UserID == userID && e.TipsterID == tipsterID {
			delete(s.edges, id)
			return nil
		}
	}
	return ErrNotFollowing
}

func (s *MemStore) Exists(_ context.Context, userID, tipsterID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.edges {
		if e.UserID == userID && e.TipsterID == tipsterID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) TipsterIDsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var edges []Follow
	for _, e := range s.edges {
		if e.UserID == userID {
			edges = append(edges, e)
		}
	}
	slices.SortFunc(edges, func(a, b Follow) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	out := make([]uuid.UUID, len(edges))
	for i, e := range edges {
		out[i] = e.TipsterID
	}
	return out, nil
}

func (s *MemStore) CountByTipster(_ context.Context, tipsterID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.edges {
		if e.TipsterID == tipsterID {
			count++
		}
	}
	return count, nil
}
