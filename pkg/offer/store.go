package offer

import (
	"context"

	"github.com/google/uuid"
)

// Store defines offer persistence. Returns ErrNotFound for missing rows.
type Store interface {
	Create(ctx context.Context, o *Offer) error
	Update(ctx context.Context, o *Offer) error
	// Delete removes the row permanently. Callers must have verified the
	// offer has no subscriptions; the service enforces this.
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*Offer, error)
	ListByTipster(ctx context.Context, tipsterID uuid.UUID, includeInactive bool) ([]Offer, error)
	// SetProviderRefs records the remote product/price pair after a
	// successful gateway sync.
	SetProviderRefs(ctx context.Context, id uuid.UUID, productID, priceID string) error

	// SubscriptionCount returns how many subscriptions (any status) have
	// ever referenced the offer.
	SubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error)
	// ActiveSubscriptionCount returns how many subscriptions to the offer
	// are currently entitled (active or trialing).
	ActiveSubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error)
	// ActiveSubscriberCountByTipster counts paying (active) subscribers
	// across all of a tipster's offers; feeds the fee tier snapshot.
	ActiveSubscriberCountByTipster(ctx context.Context, tipsterID uuid.UUID) (int, error)
}

// TipsterDirectory resolves offer ownership. Implemented by the tipster
// profile storage; the catalog only needs the owner lookup.
type TipsterDirectory interface {
	// OwnerUserID returns the user who owns the tipster profile, or
	// ErrTipsterNotFound.
	OwnerUserID(ctx context.Context, tipsterID uuid.UUID) (uuid.UUID, error)
}
