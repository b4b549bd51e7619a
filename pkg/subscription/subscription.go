// Package subscription is the ledger of purchased access and its
// reconciliation against processor webhook events.
//
// The ledger is not the source of truth for recurring billing; the
// processor is. Webhook events carry full-state snapshots and the last
// processed event wins, with one exception: a row in a terminal status is
// never resurrected. A new purchase creates a new row.
package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a subscription row.
type Status string

const (
	StatusTrialing  Status = "trialing"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

// Entitled reports whether the status grants access to paid content.
// Past-due rows keep their row but lose access until payment recovers.
func (s Status) Entitled() bool {
	return s == StatusActive || s == StatusTrialing
}

// canTransition reports whether a snapshot may move a row from one status
// to another. Terminal rows never move; everything else follows the
// snapshot.
func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return !from.Terminal()
}

// Subscription is one purchase of one offer by one user.
//
// ProviderSubID is empty for one-time (lifetime) purchases; those rows are
// never driven by subscription webhooks and never expire. FeePercent is
// the platform fee frozen at checkout time; later tier changes never
// reprice an existing subscription.
type Subscription struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	OfferID           uuid.UUID
	TipsterID         uuid.UUID
	Status            Status
	ProviderSubID     string
	OneTime           bool
	FeePercent        int
	CurrentPeriodEnd  *time.Time
	TrialEnd          *time.Time
	CancelAtPeriodEnd bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
