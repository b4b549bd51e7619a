package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger persists subscription rows. Returns ErrNotFound for missing rows
// and ErrAlreadySubscribed when an insert collides with an existing
// non-terminal row for the same (user, offer).
type Ledger interface {
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)
	// FindNonTerminal returns the user's live row for the offer, if any.
	FindNonTerminal(ctx context.Context, userID, offerID uuid.UUID) (*Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error)
	// DeleteTerminal purges finished rows for the pair so a repurchase can
	// insert a fresh one without tripping the uniqueness guard.
	DeleteTerminal(ctx context.Context, userID, offerID uuid.UUID) error
	// SweepExpired marks rows expired when their period end passed and no
	// provider subscription drives them. Returns how many rows moved.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
