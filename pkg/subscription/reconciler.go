package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/logger"
)

// Reconciler applies normalized processor events to the ledger.
//
// Events are full-state snapshots and may arrive duplicated or out of
// order; applying one is idempotent and the last processed snapshot wins.
// The single exception is a terminal row, which never changes again. Work
// is serialized per provider subscription ID so concurrent deliveries for
// the same agreement cannot interleave.
type Reconciler struct {
	ledger Ledger
	locks  *LockSet
	log    *slog.Logger
}

// NewReconciler wires the reconciler. The lock set must be the same
// instance the subscription service uses. Panics on nil dependencies.
func NewReconciler(ledger Ledger, locks *LockSet, log *slog.Logger) *Reconciler {
	if ledger == nil {
		panic("subscription: Ledger is required")
	}
	if locks == nil {
		panic("subscription: LockSet is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		ledger: ledger,
		locks:  locks,
		log:    log,
	}
}

// Apply reconciles one event. A nil return means the event is settled:
// applied, already applied, or deliberately dropped. Only infrastructure
// failures return an error, so the webhook endpoint can ask the processor
// to redeliver.
func (r *Reconciler) Apply(ctx context.Context, ev *billing.Event) error {
	switch ev.Category {
	case billing.EventCheckoutCompleted:
		return r.applyOneTime(ctx, ev)
	case billing.EventSubscriptionCreated,
		billing.EventSubscriptionUpdated,
		billing.EventSubscriptionDeleted,
		billing.EventInvoicePaid,
		billing.EventInvoicePaymentFailed:
		return r.applyProviderSub(ctx, ev)
	case billing.EventPayeeAccountUpdated:
		// Routed to the payee service by the webhook dispatcher; nothing
		// for the ledger to do.
		return nil
	default:
		r.log.DebugContext(ctx, "ignoring unhandled webhook event",
			logger.EventType(ev.ProviderEvent))
		return nil
	}
}

// applyOneTime records a lifetime purchase. No recurring agreement exists,
// so the row is keyed on (user, offer) alone and never expires.
func (r *Reconciler) applyOneTime(ctx context.Context, ev *billing.Event) error {
	if !ev.HasCorrelation() {
		r.log.WarnContext(ctx, "dropping uncorrelated checkout event",
			slog.String("event_id", ev.ID),
			logger.EventType(ev.ProviderEvent))
		return nil
	}

	key := ev.UserID.String() + ":" + ev.OfferID.String()
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	existing, err := r.ledger.FindNonTerminal(ctx, ev.UserID, ev.OfferID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		// Redelivery of a purchase already recorded.
		return nil
	}

	// Finished rows for the pair block the uniqueness guard; a repurchase
	// replaces them.
	if err := r.ledger.DeleteTerminal(ctx, ev.UserID, ev.OfferID); err != nil {
		return err
	}

	now := time.Now().UTC()
	sub := &Subscription{
		ID:         uuid.New(),
		UserID:     ev.UserID,
		OfferID:    ev.OfferID,
		TipsterID:  ev.TipsterID,
		Status:     StatusActive,
		OneTime:    true,
		FeePercent: ev.FeePercent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.ledger.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			return nil
		}
		return err
	}

	r.log.InfoContext(ctx, "recorded lifetime purchase",
		logger.SubscriptionID(sub.ID.String()),
		slog.String("user_id", ev.UserID.String()),
		slog.String("offer_id", ev.OfferID.String()))
	return nil
}

// applyProviderSub reconciles an event carrying a provider subscription
// reference.
func (r *Reconciler) applyProviderSub(ctx context.Context, ev *billing.Event) error {
	if ev.ProviderSubID == "" {
		r.log.WarnContext(ctx, "dropping subscription event without provider reference",
			slog.String("event_id", ev.ID),
			logger.EventType(ev.ProviderEvent))
		return nil
	}

	r.locks.Lock(ev.ProviderSubID)
	defer r.locks.Unlock(ev.ProviderSubID)

	sub, err := r.ledger.GetByProviderSubID(ctx, ev.ProviderSubID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return r.createFromEvent(ctx, ev)
		}
		return err
	}
	return r.overwrite(ctx, sub, ev)
}

// createFromEvent inserts the row a snapshot refers to. Out-of-order
// delivery means any subscription event can be the first one seen, so all
// of them can create, as long as the checkout correlation is present.
func (r *Reconciler) createFromEvent(ctx context.Context, ev *billing.Event) error {
	if !ev.HasCorrelation() {
		r.log.WarnContext(ctx, "dropping event for unknown subscription without correlation",
			slog.String("event_id", ev.ID),
			logger.ProviderSubID(ev.ProviderSubID),
			logger.EventType(ev.ProviderEvent))
		return nil
	}

	if err := r.ledger.DeleteTerminal(ctx, ev.UserID, ev.OfferID); err != nil {
		return err
	}

	now := time.Now().UTC()
	sub := &Subscription{
		ID:                uuid.New(),
		UserID:            ev.UserID,
		OfferID:           ev.OfferID,
		TipsterID:         ev.TipsterID,
		Status:            mapEventStatus(ev.State),
		ProviderSubID:     ev.ProviderSubID,
		FeePercent:        ev.FeePercent,
		CurrentPeriodEnd:  ev.PeriodEnd,
		TrialEnd:          ev.TrialEnd,
		CancelAtPeriodEnd: ev.CancelAtPeriodEnd,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.ledger.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			// Lost a race with another delivery; re-apply as an update.
			current, getErr := r.ledger.GetByProviderSubID(ctx, ev.ProviderSubID)
			if getErr != nil {
				return getErr
			}
			return r.overwrite(ctx, current, ev)
		}
		return err
	}

	r.log.InfoContext(ctx, "created subscription from webhook",
		logger.SubscriptionID(sub.ID.String()),
		logger.ProviderSubID(ev.ProviderSubID),
		slog.String("status", string(sub.Status)))
	return nil
}

// overwrite applies the snapshot onto an existing row.
func (r *Reconciler) overwrite(ctx context.Context, sub *Subscription, ev *billing.Event) error {
	next := mapEventStatus(ev.State)
	if !canTransition(sub.Status, next) {
		r.log.WarnContext(ctx, "dropping event for finished subscription",
			logger.SubscriptionID(sub.ID.String()),
			logger.ProviderSubID(ev.ProviderSubID),
			slog.String("current_status", string(sub.Status)),
			slog.String("event_status", string(next)))
		return nil
	}

	sub.Status = next
	if ev.PeriodEnd != nil {
		sub.CurrentPeriodEnd = ev.PeriodEnd
	}
	if ev.TrialEnd != nil {
		sub.TrialEnd = ev.TrialEnd
	}
	switch ev.Category {
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		// Full agreement snapshots carry the flag authoritatively; invoice
		// events do not mention it and must not clear it.
		sub.CancelAtPeriodEnd = ev.CancelAtPeriodEnd
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := r.ledger.Update(ctx, sub); err != nil {
		return err
	}
	r.log.InfoContext(ctx, "reconciled subscription",
		logger.SubscriptionID(sub.ID.String()),
		logger.ProviderSubID(ev.ProviderSubID),
		logger.EventType(ev.ProviderEvent),
		slog.String("status", string(sub.Status)))
	return nil
}

// mapEventStatus maps the processor-reported state onto the ledger's
// status set. Unrecognized states fall back to past_due: access is
// revoked but the row stays live for a later snapshot to fix.
func mapEventStatus(state billing.SubscriptionState) Status {
	switch state {
	case billing.StateTrialing:
		return StatusTrialing
	case billing.StateActive:
		return StatusActive
	case billing.StatePastDue:
		return StatusPastDue
	case billing.StateCanceled:
		return StatusCancelled
	default:
		return StatusPastDue
	}
}
