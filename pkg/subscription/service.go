package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/fees"
	"github.com/tipvault/tipvault/pkg/logger"
	"github.com/tipvault/tipvault/pkg/offer"
)

// Catalog is the slice of the offer catalog checkout needs.
type Catalog interface {
	Get(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error)
	// ActiveSubscriberCount is the point-in-time paying subscriber count of
	// a tipster; it feeds the fee tier snapshot.
	ActiveSubscriberCount(ctx context.Context, tipsterID uuid.UUID) (int, error)
	// RepairRemotePrice re-creates the remote product+price pair when the
	// cached reference no longer resolves.
	RepairRemotePrice(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error)
}

// PayeeDirectory resolves a tipster's payout destination for checkout.
type PayeeDirectory interface {
	AccountStatus(ctx context.Context, tipsterID uuid.UUID) (billing.AccountStatusView, error)
}

// CheckoutInput describes a checkout request.
type CheckoutInput struct {
	OfferID    uuid.UUID
	SuccessURL string
	CancelURL  string
}

// Service drives checkout and cancellation. The ledger itself is written
// by the reconciler; checkout only produces the hosted session.
type Service struct {
	ledger   Ledger
	catalog  Catalog
	tipsters offer.TipsterDirectory
	gateway  billing.Gateway
	payees   PayeeDirectory
	schedule fees.Schedule
	inflight *inflightSet
	locks    *LockSet
	log      *slog.Logger
}

// NewService wires the subscription service. The lock set must be the same
// instance the reconciler uses, so cancellations and webhook snapshots for
// one agreement serialize against each other. Panics on nil dependencies
// to fail fast during initialization.
func NewService(ledger Ledger, catalog Catalog, tipsters offer.TipsterDirectory, gateway billing.Gateway, payees PayeeDirectory, schedule fees.Schedule, locks *LockSet, log *slog.Logger) *Service {
	if ledger == nil {
		panic("subscription: Ledger is required")
	}
	if catalog == nil {
		panic("subscription: Catalog is required")
	}
	if tipsters == nil {
		panic("subscription: TipsterDirectory is required")
	}
	if gateway == nil {
		panic("subscription: billing.Gateway is required")
	}
	if payees == nil {
		panic("subscription: PayeeDirectory is required")
	}
	if err := schedule.Validate(); err != nil {
		panic("subscription: invalid fee schedule: " + err.Error())
	}
	if locks == nil {
		panic("subscription: LockSet is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		ledger:   ledger,
		catalog:  catalog,
		tipsters: tipsters,
		gateway:  gateway,
		payees:   payees,
		schedule: schedule,
		inflight: newInflightSet(),
		locks:    locks,
		log:      log,
	}
}

// CreateCheckout validates preconditions and creates a hosted checkout
// session. No ledger row is written here; the row appears when the
// processor confirms the purchase through a webhook.
//
// At most one checkout per (user, offer) is in flight at a time. The
// platform fee percent is computed from the tipster's current paying
// subscriber count and frozen into the session.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*billing.Checkout, error) {
	o, err := s.catalog.Get(ctx, in.OfferID)
	if err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}
	if !o.Active {
		return nil, errors.Join(ErrConflictingState, ErrOfferInactive)
	}

	owner, err := s.tipsters.OwnerUserID(ctx, o.TipsterID)
	if err != nil {
		return nil, err
	}
	if owner == userID {
		return nil, errors.Join(ErrValidation, ErrOwnOffer)
	}

	if existing, err := s.ledger.FindNonTerminal(ctx, userID, o.ID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	} else if existing != nil {
		return nil, errors.Join(ErrConflictingState, ErrAlreadySubscribed)
	}

	payee, err := s.payees.AccountStatus(ctx, o.TipsterID)
	if err != nil {
		return nil, err
	}
	if !payee.ChargesEnabled {
		return nil, ErrPayeeNotReady
	}

	key := userID.String() + ":" + o.ID.String()
	if !s.inflight.TryAcquire(key) {
		return nil, errors.Join(ErrConflictingState, ErrCheckoutInFlight)
	}
	defer s.inflight.Release(key)

	o, err = s.repairPriceDrift(ctx, o)
	if err != nil {
		return nil, err
	}

	// Snapshot read without a lock: the count may drift by the time the
	// purchase completes, and the frozen percent is still honored.
	count, err := s.catalog.ActiveSubscriberCount(ctx, o.TipsterID)
	if err != nil {
		return nil, err
	}
	feePercent := s.schedule.PercentFor(count)

	checkout, err := s.gateway.CreateCheckout(ctx, billing.CheckoutSpec{
		PriceID:        o.ProviderPriceID,
		UserID:         userID,
		OfferID:        o.ID,
		TipsterID:      o.TipsterID,
		PayeeAccountID: payee.ProviderAccountID,
		FeePercent:     feePercent,
		FeeAmount:      fees.ApplicationFee(o.Price, feePercent),
		OneTime:        !o.Duration.Recurring(),
		SuccessURL:     in.SuccessURL,
		CancelURL:      in.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout session created",
		slog.String("offer_id", o.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("fee_percent", feePercent))
	return checkout, nil
}

// repairPriceDrift verifies the offer's cached price reference against the
// processor and re-syncs the pair when it no longer resolves. Runs on
// every checkout attempt; remote objects can vanish independently of
// local state.
func (s *Service) repairPriceDrift(ctx context.Context, o *offer.Offer) (*offer.Offer, error) {
	if o.ProviderPriceID == "" {
		return s.catalog.RepairRemotePrice(ctx, o.ID)
	}
	err := s.gateway.VerifyPrice(ctx, o.ProviderPriceID)
	if err == nil {
		return o, nil
	}
	if errors.Is(err, billing.ErrRemoteTransient) {
		return nil, err
	}
	s.log.WarnContext(ctx, "stale remote price reference, re-syncing",
		slog.String("offer_id", o.ID.String()),
		slog.String("price_id", o.ProviderPriceID),
		logger.Error(err))
	return s.catalog.RepairRemotePrice(ctx, o.ID)
}

// Cancel terminates the subscriber's recurring agreement, either
// immediately or at the end of the current billing period. The remote call
// runs first; the ledger write is the last step, and the webhook snapshot
// that follows converges the row either way.
func (s *Service) Cancel(ctx context.Context, subscriptionID, actorID uuid.UUID, immediate bool) (*Subscription, error) {
	sub, err := s.ledger.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != actorID {
		return nil, ErrForbidden
	}
	if sub.Status.Terminal() {
		return nil, errors.Join(ErrConflictingState, errors.New("subscription: already finished"))
	}
	if sub.OneTime {
		return nil, errors.Join(ErrConflictingState, ErrNotCancellable)
	}
	if sub.ProviderSubID == "" {
		return nil, errors.Join(ErrConflictingState, ErrMissingProviderRef)
	}

	// The reconciler locks on the same key. Re-read under the lock so the
	// final write cannot clobber a snapshot applied since the first read.
	s.locks.Lock(sub.ProviderSubID)
	defer s.locks.Unlock(sub.ProviderSubID)

	sub, err = s.ledger.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.Terminal() {
		return nil, errors.Join(ErrConflictingState, errors.New("subscription: already finished"))
	}

	if err := s.gateway.CancelSubscription(ctx, sub.ProviderSubID, immediate); err != nil {
		return nil, err
	}

	if immediate {
		sub.Status = StatusCancelled
	} else {
		sub.CancelAtPeriodEnd = true
	}
	sub.UpdatedAt = time.Now().UTC()
	if err := s.ledger.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription cancelled",
		logger.SubscriptionID(sub.ID.String()),
		slog.Bool("immediate", immediate))
	return sub, nil
}

// Get returns a single subscription, restricted to its owner.
func (s *Service) Get(ctx context.Context, subscriptionID, actorID uuid.UUID) (*Subscription, error) {
	sub, err := s.ledger.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != actorID {
		return nil, ErrForbidden
	}
	return sub, nil
}

// ListByUser returns all of a user's subscription rows, live and finished.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	return s.ledger.ListByUser(ctx, userID)
}

// SweepExpired expires locally managed rows whose period end has passed.
// Provider-driven rows are excluded; their lifecycle arrives by webhook.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.ledger.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired stale subscriptions", slog.Int("count", n))
	}
	return n, nil
}
