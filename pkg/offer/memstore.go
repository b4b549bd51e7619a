package offer

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// CountSource answers the subscription-count queries the catalog needs.
// In the Postgres store these are plain queries against the subscriptions
// table; the in-memory store delegates to the ledger instead.
type CountSource interface {
	SubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error)
	ActiveSubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error)
	ActiveSubscriberCountByTipster(ctx context.Context, tipsterID uuid.UUID) (int, error)
}

// MemStore is an in-memory Store for tests and local development.
type MemStore struct {
	mu     sync.RWMutex
	offers map[uuid.UUID]Offer
	counts CountSource
}

// NewMemStore creates an empty in-memory store. The counts source may be
// nil, in which case all subscription counts are zero.
func NewMemStore(counts CountSource) *MemStore {
	return &MemStore{
		offers: make(map[uuid.UUID]Offer),
		counts: counts,
	}
}

func (s *MemStore) Create(_ context.Context, o *Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.ID] = *o
	return nil
}

func (s *MemStore) Update(_ context.Context, o *Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; !ok {
		return ErrNotFound
	}
	s.offers[o.ID] = *o
	return nil
}

func (s *MemStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[id]; !ok {
		return ErrNotFound
	}
	delete(s.offers, id)
	return nil
}

func (s *MemStore) Get(_ context.Context, id uuid.UUID) (*Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemStore) ListByTipster(_ context.Context, tipsterID uuid.UUID, includeInactive bool) ([]Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Offer
	for _, o := range s.offers {
		if o.TipsterID != tipsterID {
			continue
		}
		if !o.Active && !includeInactive {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b Offer) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *MemStore) SetProviderRefs(_ context.Context, id uuid.UUID, productID, priceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return ErrNotFound
	}
	o.ProviderProductID = productID
	o.ProviderPriceID = priceID
	s.offers[id] = o
	return nil
}

func (s *MemStore) SubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error) {
	if s.counts == nil {
		return 0, nil
	}
	return s.counts.SubscriptionCount(ctx, offerID)
}

func (s *MemStore) ActiveSubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error) {
	if s.counts == nil {
		return 0, nil
	}
	return s.counts.ActiveSubscriptionCount(ctx, offerID)
}

func (s *MemStore) ActiveSubscriberCountByTipster(ctx context.Context, tipsterID uuid.UUID) (int, error) {
	if s.counts == nil {
		return 0, nil
	}
	return s.counts.ActiveSubscriberCountByTipster(ctx, tipsterID)
}
