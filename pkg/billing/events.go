package billing

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory is the normalized category of a processor notification.
type EventCategory string

const (
	EventCheckoutCompleted    EventCategory = "checkout_completed"
	EventSubscriptionCreated  EventCategory = "subscription_created"
	EventSubscriptionUpdated  EventCategory = "subscription_updated"
	EventSubscriptionDeleted  EventCategory = "subscription_deleted"
	EventInvoicePaid          EventCategory = "invoice_paid"
	EventInvoicePaymentFailed EventCategory = "invoice_payment_failed"
	EventPayeeAccountUpdated  EventCategory = "payee_account_updated"

	// EventUnknown is acknowledged and ignored by consumers.
	EventUnknown EventCategory = "unknown"
)

// SubscriptionState is the processor-reported subscription status carried
// by an event. The ledger maps it onto its own status set.
type SubscriptionState string

const (
	StateTrialing SubscriptionState = "trialing"
	StateActive   SubscriptionState = "active"
	StatePastDue  SubscriptionState = "past_due"
	StateCanceled SubscriptionState = "canceled"
)

// Event is a normalized processor notification. The payload is a
// full-state snapshot of the remote object, never a delta: the reconciler
// overwrites local fields with whatever the latest processed event says.
type Event struct {
	ID            string
	Category      EventCategory
	ProviderEvent string // original processor event name
	OccurredAt    time.Time

	// Subscription correlation. ProviderSubID is the idempotency key.
	// UserID/OfferID/TipsterID come from checkout correlation metadata and
	// are Nil when the notification carries none.
	ProviderSubID string
	UserID        uuid.UUID
	OfferID       uuid.UUID
	TipsterID     uuid.UUID

	State             SubscriptionState
	PeriodEnd         *time.Time
	TrialEnd          *time.Time
	CancelAtPeriodEnd bool

	// OneTime is set on checkout-completed events for payment-mode
	// (lifetime) purchases, which never produce a recurring agreement.
	OneTime bool

	// FeePercent is the platform commission frozen at checkout, echoed
	// back in the correlation metadata. Zero when absent.
	FeePercent int

	// Account is set on payee-account events only.
	Account *PayeeAccountUpdate

	Raw map[string]any
}

// HasCorrelation reports whether the event carries enough metadata to
// create a ledger record that does not exist yet.
func (e *Event) HasCorrelation() bool {
	return e.UserID != uuid.Nil && e.OfferID != uuid.Nil
}

// PayeeAccountUpdate is the account-capability snapshot carried by a
// payable-account notification.
type PayeeAccountUpdate struct {
	ProviderAccountID string
	ChargesEnabled    bool
	PayoutsEnabled    bool
	DetailsSubmitted  bool
}
