// Package tipster holds the minimal tipster profile: the link between a
// platform user and the catalog, ledger, and payee records keyed by
// tipster ID.
package tipster

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/offer"
)

var (
	ErrNotFound = errors.New("tipster: not found")
	ErrExists   = errors.New("tipster: user already has a profile")
)

// Tipster is a seller profile owned by exactly one user.
type Tipster struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	Bio         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists tipster profiles.
type Store interface {
	Create(ctx context.Context, t *Tipster) error
	Get(ctx context.Context, id uuid.UUID) (*Tipster, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Tipster, error)
	List(ctx context.Context) ([]Tipster, error)
}

// Directory adapts a Store to the owner lookups the other packages need.
// It satisfies offer.TipsterDirectory.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	if store == nil {
		panic("tipster: Store is required")
	}
	return &Directory{store: store}
}

// OwnerUserID returns the user who owns the profile.
func (d *Directory) OwnerUserID(ctx context.Context, tipsterID uuid.UUID) (uuid.UUID, error) {
	t, err := d.store.Get(ctx, tipsterID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, offer.ErrTipsterNotFound
		}
		return uuid.Nil, err
	}
	return t.UserID, nil
}
