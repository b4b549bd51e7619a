package offer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/logger"
)

// ProductSyncer creates the remote product+price pair for an offer.
// Implemented by the billing gateway.
type ProductSyncer interface {
	SyncProduct(ctx context.Context, spec billing.ProductSpec) (billing.ProductRefs, error)
}

// PayeeChecker reports whether a tipster's payout destination can accept
// charges. Implemented by the billing payee service.
type PayeeChecker interface {
	ChargesEnabled(ctx context.Context, tipsterID uuid.UUID) (bool, error)
}

// CreateInput describes a new offer.
type CreateInput struct {
	Name        string
	Description string
	Price       int64
	Currency    string
	Duration    Duration
	Sports      []Sport
	TrialDays   int
}

// UpdateInput is a partial offer patch; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Price       *int64
	Duration    *Duration
	Sports      []Sport // nil = unchanged, empty = clear scope
	TrialDays   *int
	Active      *bool
}

// DeleteOutcome distinguishes a hard delete from a soft deactivation so
// callers can tell the tipster which one actually happened.
type DeleteOutcome string

const (
	DeleteOutcomeDeleted     DeleteOutcome = "deleted"
	DeleteOutcomeDeactivated DeleteOutcome = "deactivated"
)

// Service is the offer catalog.
type Service struct {
	store    Store
	tipsters TipsterDirectory
	syncer   ProductSyncer
	payees   PayeeChecker
	log      *slog.Logger
}

// NewService wires the offer catalog. Panics on nil dependencies to fail
// fast during initialization.
func NewService(store Store, tipsters TipsterDirectory, syncer ProductSyncer, payees PayeeChecker, log *slog.Logger) *Service {
	if store == nil {
		panic("offer: Store is required")
	}
	if tipsters == nil {
		panic("offer: TipsterDirectory is required")
	}
	if syncer == nil {
		panic("offer: ProductSyncer is required")
	}
	if payees == nil {
		panic("offer: PayeeChecker is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, tipsters: tipsters, syncer: syncer, payees: payees, log: log}
}

// Create validates and persists a new offer and syncs its remote
// product+price pair. If the remote sync fails the local row is rolled
// back: an offer with no monetization path must not exist.
func (s *Service) Create(ctx context.Context, tipsterID, actorID uuid.UUID, in CreateInput) (*Offer, error) {
	if err := s.requireOwner(ctx, tipsterID, actorID); err != nil {
		return nil, err
	}

	ready, err := s.payees.ChargesEnabled(ctx, tipsterID)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, ErrPayeeNotReady
	}

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &Offer{
		ID:          uuid.New(),
		TipsterID:   tipsterID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Currency:    normalizeCurrency(in.Currency),
		Duration:    in.Duration,
		Sports:      in.Sports,
		TrialDays:   in.TrialDays,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	refs, err := s.syncer.SyncProduct(ctx, productSpec(o))
	if err != nil {
		// Roll back: the offer must not exist without a remote price.
		if delErr := s.store.Delete(ctx, o.ID); delErr != nil {
			s.log.ErrorContext(ctx, "failed to roll back offer after gateway sync failure",
				slog.String("offer_id", o.ID.String()), logger.Error(delErr))
		}
		return nil, errors.Join(ErrGatewaySyncFailed, err)
	}

	if err := s.store.SetProviderRefs(ctx, o.ID, refs.ProductID, refs.PriceID); err != nil {
		return nil, err
	}
	o.ProviderProductID = refs.ProductID
	o.ProviderPriceID = refs.PriceID
	return o, nil
}

// Update applies a partial patch. Price and duration are frozen while the
// offer has entitled (active or trialing) subscribers, no matter how small
// the change.
func (s *Service) Update(ctx context.Context, offerID, actorID uuid.UUID, patch UpdateInput) (*Offer, error) {
	o, err := s.ownedOffer(ctx, offerID, actorID)
	if err != nil {
		return nil, err
	}

	priceChanged := patch.Price != nil && *patch.Price != o.Price
	durationChanged := patch.Duration != nil && *patch.Duration != o.Duration

	if priceChanged || durationChanged {
		n, err := s.store.ActiveSubscriptionCount(ctx, offerID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, errors.Join(ErrConflictingState, ErrTermsFrozen,
				fmt.Errorf("offer has %d entitled subscribers", n))
		}
	}

	if patch.Price != nil && *patch.Price < MinPrice {
		return nil, errors.Join(ErrValidation, ErrPriceBelowMinimum)
	}
	if patch.Duration != nil && !patch.Duration.Valid() {
		return nil, errors.Join(ErrValidation, ErrUnknownDuration)
	}
	if patch.TrialDays != nil && *patch.TrialDays < 0 {
		return nil, errors.Join(ErrValidation, errors.New("offer: negative trial days"))
	}

	if patch.Name != nil {
		o.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		o.Description = *patch.Description
	}
	if patch.Price != nil {
		o.Price = *patch.Price
	}
	if patch.Duration != nil {
		o.Duration = *patch.Duration
	}
	if patch.Sports != nil {
		o.Sports = patch.Sports
	}
	if patch.TrialDays != nil {
		o.TrialDays = *patch.TrialDays
	}
	if patch.Active != nil {
		o.Active = *patch.Active
	}
	o.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}

	// Changed economic terms need a fresh remote pair; prices are
	// immutable on the processor side. A failure here is tolerable:
	// the stale reference is healed on the next checkout attempt.
	if priceChanged || durationChanged {
		refs, err := s.syncer.SyncProduct(ctx, productSpec(o))
		if err != nil {
			s.log.WarnContext(ctx, "failed to refresh remote product after terms change",
				slog.String("offer_id", o.ID.String()), logger.Error(err))
			return o, nil
		}
		if err := s.store.SetProviderRefs(ctx, o.ID, refs.ProductID, refs.PriceID); err != nil {
			return nil, err
		}
		o.ProviderProductID = refs.ProductID
		o.ProviderPriceID = refs.PriceID
	}

	return o, nil
}

// Delete removes an offer outright only when nothing ever subscribed to
// it; otherwise it deactivates the offer and reports that distinctly.
func (s *Service) Delete(ctx context.Context, offerID, actorID uuid.UUID) (DeleteOutcome, error) {
	o, err := s.ownedOffer(ctx, offerID, actorID)
	if err != nil {
		return "", err
	}

	n, err := s.store.SubscriptionCount(ctx, offerID)
	if err != nil {
		return "", err
	}
	if n > 0 {
		o.Active = false
		o.UpdatedAt = time.Now().UTC()
		if err := s.store.Update(ctx, o); err != nil {
			return "", err
		}
		return DeleteOutcomeDeactivated, nil
	}

	if err := s.store.Delete(ctx, offerID); err != nil {
		return "", err
	}
	return DeleteOutcomeDeleted, nil
}

// RepairRemotePrice re-creates the offer's remote product+price pair and
// stores the fresh references. Called when a cached price reference no
// longer resolves on the processor side.
func (s *Service) RepairRemotePrice(ctx context.Context, offerID uuid.UUID) (*Offer, error) {
	o, err := s.store.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}

	refs, err := s.syncer.SyncProduct(ctx, productSpec(o))
	if err != nil {
		return nil, errors.Join(ErrGatewaySyncFailed, err)
	}
	if err := s.store.SetProviderRefs(ctx, o.ID, refs.ProductID, refs.PriceID); err != nil {
		return nil, err
	}
	o.ProviderProductID = refs.ProductID
	o.ProviderPriceID = refs.PriceID

	s.log.InfoContext(ctx, "re-synced remote product after price drift",
		slog.String("offer_id", o.ID.String()),
		slog.String("price_id", refs.PriceID))
	return o, nil
}

// Get returns a single offer.
func (s *Service) Get(ctx context.Context, offerID uuid.UUID) (*Offer, error) {
	return s.store.Get(ctx, offerID)
}

// ListByTipster returns a tipster's offers. Inactive offers are included
// only when requested (owner dashboards).
func (s *Service) ListByTipster(ctx context.Context, tipsterID uuid.UUID, includeInactive bool) ([]Offer, error) {
	return s.store.ListByTipster(ctx, tipsterID, includeInactive)
}

// ActiveSubscriberCount counts a tipster's paying subscribers across all
// offers. Read without a lock: the caller freezes the derived fee into the
// checkout artifact, so slight staleness is acceptable.
func (s *Service) ActiveSubscriberCount(ctx context.Context, tipsterID uuid.UUID) (int, error) {
	return s.store.ActiveSubscriberCountByTipster(ctx, tipsterID)
}

func (s *Service) requireOwner(ctx context.Context, tipsterID, actorID uuid.UUID) error {
	owner, err := s.tipsters.OwnerUserID(ctx, tipsterID)
	if err != nil {
		if errors.Is(err, ErrTipsterNotFound) {
			return errors.Join(ErrNotFound, err)
		}
		return err
	}
	if owner != actorID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) ownedOffer(ctx context.Context, offerID, actorID uuid.UUID) (*Offer, error) {
	o, err := s.store.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, o.TipsterID, actorID); err != nil {
		return nil, err
	}
	return o, nil
}

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.Join(ErrValidation, errors.New("offer: name is required"))
	}
	if in.Price < MinPrice {
		return errors.Join(ErrValidation, ErrPriceBelowMinimum)
	}
	if !in.Duration.Valid() {
		return errors.Join(ErrValidation, ErrUnknownDuration)
	}
	if in.TrialDays < 0 {
		return errors.Join(ErrValidation, errors.New("offer: negative trial days"))
	}
	return nil
}

func normalizeCurrency(c string) string {
	if c == "" {
		return "EUR"
	}
	return strings.ToUpper(c)
}

func productSpec(o *Offer) billing.ProductSpec {
	return billing.ProductSpec{
		OfferID:     o.ID,
		TipsterID:   o.TipsterID,
		Name:        o.Name,
		Description: o.Description,
		Price:       o.Price,
		Currency:    o.Currency,
		Interval:    billingInterval(o.Duration),
		TrialDays:   o.TrialDays,
	}
}

func billingInterval(d Duration) billing.Interval {
	switch d {
	case DurationWeekly:
		return billing.IntervalWeek
	case DurationMonthly:
		return billing.IntervalMonth
	case DurationYearly:
		return billing.IntervalYear
	default:
		return billing.IntervalNone
	}
}
