// Package billing adapts the external payment processor: remote product
// and price objects, hosted checkout sessions, recurring-agreement
// cancellation, and webhook notification parsing.
//
// The processor is an at-least-once, eventually-consistent remote system.
// Notifications may arrive duplicated or out of order; parsing normalizes
// them into Event values the subscription reconciler can apply
// idempotently. Payee (payout destination) accounts are tracked locally
// and kept in sync from account notifications and explicit status pulls.
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Interval is the processor-side billing interval of a price.
type Interval string

const (
	IntervalNone  Interval = "none" // one-time charge
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// ProductSpec describes the remote product+price pair for an offer.
type ProductSpec struct {
	OfferID     uuid.UUID
	TipsterID   uuid.UUID
	Name        string
	Description string
	Price       int64 // minor currency units
	Currency    string
	Interval    Interval
	TrialDays   int
}

// ProductRefs holds the remote identifiers created by a product sync.
type ProductRefs struct {
	ProductID string
	PriceID   string
}

// CheckoutSpec describes a hosted checkout session to create.
// FeePercent is the platform commission frozen into the checkout artifact;
// it is computed by the caller from a point-in-time subscriber count and
// never recomputed for the resulting subscription. FeeAmount is the same
// commission resolved against the offer price, in minor currency units.
type CheckoutSpec struct {
	PriceID        string
	UserID         uuid.UUID
	OfferID        uuid.UUID
	TipsterID      uuid.UUID
	PayeeAccountID string
	FeePercent     int
	FeeAmount      int64
	OneTime        bool // lifetime purchase: payment mode, no recurring agreement
	SuccessURL     string
	CancelURL      string
}

// Checkout is a created hosted checkout session.
type Checkout struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// Gateway is the adapter surface against the payment processor.
type Gateway interface {
	// SyncProduct creates a fresh remote product+price pair for an offer.
	SyncProduct(ctx context.Context, spec ProductSpec) (ProductRefs, error)

	// VerifyPrice confirms a cached remote price reference still resolves.
	// Remote objects can be invalidated independently of local state, so
	// callers run this on every checkout attempt and re-sync on failure.
	VerifyPrice(ctx context.Context, priceID string) error

	// CreateCheckout creates a hosted checkout session. Never retried
	// automatically: a duplicate session risks a double charge.
	CreateCheckout(ctx context.Context, spec CheckoutSpec) (*Checkout, error)

	// CancelSubscription terminates a recurring agreement, immediately or
	// at the end of the current billing period.
	CancelSubscription(ctx context.Context, providerSubID string, immediate bool) error

	// ParseWebhook authenticates a notification against the processor's
	// signature scheme and normalizes it. The payload must be the raw,
	// unparsed request body: the signature covers exact bytes.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}
