package access

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemTipStore is an in-memory TipStore for tests and local development.
type MemTipStore struct {
	mu   sync.RWMutex
	tips map[uuid.UUID]Tip
}

func NewMemTipStore() *MemTipStore {
	return &MemTipStore{tips: make(map[uuid.UUID]Tip)}
}

func (s *MemTipStore) Create(_ context.Context, tip *Tip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tips[tip.ID] = *tip
	return nil
}

func (s *MemTipStore) Get(_ context.Context, id uuid.UUID) (*Tip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tip, ok := s.tips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tip, nil
}

func (s *MemTipStore) CountByTipster(_ context.Context, tipsterID uuid.UUID) (free, premium int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tip := range s.tips {
		if tip.TipsterID != tipsterID {
			continue
		}
		if tip.Premium {
			premium++
		} else {
			free++
		}
	}
	return free, premium, nil
}

func (s *MemTipStore) ListByTipster(_ context.Context, tipsterID uuid.UUID, limit int) ([]Tip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tip
	for _, tip := range s.tips {
		if tip.TipsterID == tipsterID {
			out = append(out, tip)
		}
	}
	slices.SortFunc(out, func(a, b Tip) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemTipStore) SetResult(_ context.Context, id uuid.UUID, result TipResult, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tip, ok := s.tips[id]
	if !ok {
		return ErrNotFound
	}
	tip.Result = &result
	tip.UpdatedAt = settledAt
	s.tips[id] = tip
	return nil
}

// ListByTipsterSince returns the tipster's tips created at or after the
// cutoff, oldest first. A zero cutoff returns everything.
func (s *MemTipStore) ListByTipsterSince(_ context.Context, tipsterID uuid.UUID, since time.Time) ([]Tip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tip
	for _, tip := range s.tips {
		if tip.TipsterID != tipsterID {
			continue
		}
		if !since.IsZero() && tip.CreatedAt.Before(since) {
			continue
		}
		out = append(out, tip)
	}
	slices.SortFunc(out, func(a, b Tip) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
