package subscription

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemLedger is an in-memory Ledger for tests and local development. It
// also answers the subscriber-count and entitlement queries the catalog
// and the access engine run against the subscriptions table in Postgres.
type MemLedger struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]Subscription
}

func NewMemLedger() *MemLedger {
	return &MemLedger{subs: make(map[uuid.UUID]Subscription)}
}

func (l *MemLedger) Create(_ context.Context, sub *Subscription) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.subs {
		if s.UserID == sub.UserID && s.OfferID == sub.OfferID && !s.Status.Terminal() {
			return ErrAlreadySubscribed
		}
	}
	l.subs[sub.ID] = *sub
	return nil
}

func (l *MemLedger) Update(_ context.Context, sub *Subscription) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subs[sub.ID]; !ok {
		return ErrNotFound
	}
	l.subs[sub.ID] = *sub
	return nil
}

func (l *MemLedger) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sub, ok := l.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (l *MemLedger) GetByProviderSubID(_ context.Context, providerSubID string) (*Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.subs {
		if s.ProviderSubID != "" && s.ProviderSubID == providerSubID {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (l *MemLedger) FindNonTerminal(_ context.Context, userID, offerID uuid.UUID) (*Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.subs {
		if s.UserID == userID && s.OfferID == offerID && !s.Status.Terminal() {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (l *MemLedger) ListByUser(_ context.Context, userID uuid.UUID) ([]Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Subscription
	for _, s := range l.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (l *MemLedger) DeleteTerminal(_ context.Context, userID, offerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, s := range l.subs {
		if s.UserID == userID && s.OfferID == offerID && s.Status.Terminal() {
			delete(l.subs, id)
		}
	}
	return nil
}

func (l *MemLedger) SweepExpired(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, s := range l.subs {
		if s.Status.Terminal() || s.ProviderSubID != "" {
			continue
		}
		if s.CurrentPeriodEnd == nil || !s.CurrentPeriodEnd.Before(now) {
			continue
		}
		s.Status = StatusExpired
		s.UpdatedAt = now
		l.subs[id] = s
		n++
	}
	return n, nil
}

// SubscriptionCount implements offer.CountSource.
func (l *MemLedger) SubscriptionCount(_ context.Context, offerID uuid.UUID) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, s := range l.subs {
		if s.OfferID == offerID {
			n++
		}
	}
	return n, nil
}

// ActiveSubscriptionCount implements offer.CountSource.
func (l *MemLedger) ActiveSubscriptionCount(_ context.Context, offerID uuid.UUID) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, s := range l.subs {
		if s.OfferID == offerID && s.Status.Entitled() {
			n++
		}
	}
	return n, nil
}

// ActiveSubscriberCountByTipster implements offer.CountSource. Counts
// distinct paying users, so trialing rows are excluded.
func (l *MemLedger) ActiveSubscriberCountByTipster(_ context.Context, tipsterID uuid.UUID) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	users := make(map[uuid.UUID]struct{})
	for _, s := range l.subs {
		if s.TipsterID == tipsterID && s.Status == StatusActive {
			users[s.UserID] = struct{}{}
		}
	}
	return len(users), nil
}

// EntitledByUserAndTipster returns the user's entitled rows for one
// tipster; the access engine resolves sport scopes against them.
func (l *MemLedger) EntitledByUserAndTipster(_ context.Context, userID, tipsterID uuid.UUID) ([]Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Subscription
	for _, s := range l.subs {
		if s.UserID == userID && s.TipsterID == tipsterID && s.Status.Entitled() {
			out = append(out, s)
		}
	}
	return out, nil
}
