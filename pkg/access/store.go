package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/subscription"
)

var (
	ErrValidation     = errors.New("access: invalid input")
	ErrNotFound       = errors.New("access: tip not found")
	ErrForbidden      = errors.New("access: actor does not own this resource")
	ErrAlreadySettled = errors.New("access: tip already settled")
)

// TipStore persists published tips.
type TipStore interface {
	Create(ctx context.Context, tip *Tip) error
	Get(ctx context.Context, id uuid.UUID) (*Tip, error)
	ListByTipster(ctx context.Context, tipsterID uuid.UUID, limit int) ([]Tip, error)
	// CountByTipster returns the tipster's free and premium tip counts.
	CountByTipster(ctx context.Context, tipsterID uuid.UUID) (free, premium int, err error)
	SetResult(ctx context.Context, id uuid.UUID, result TipResult, settledAt time.Time) error
}

// EntitlementSource answers which entitled subscriptions a viewer holds
// with one tipster. Implemented by the subscription ledger.
type EntitlementSource interface {
	EntitledByUserAndTipster(ctx context.Context, userID, tipsterID uuid.UUID) ([]subscription.Subscription, error)
}

// OfferScopes resolves the sport scope of subscribed offers.
type OfferScopes interface {
	Get(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error)
}
