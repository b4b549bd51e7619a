// Package access decides who may see premium tip content and redacts what
// they may not.
//
// A tip is visible when it is free, when the viewer owns the tipster
// profile, or when the viewer holds an entitled subscription to the
// tipster whose offer scope covers the tip's sport. Everything else is
// served locked: the tip stays in the feed as a teaser with its paid
// fields blanked, it is never dropped.
package access

import (
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/offer"
)

// LockedPrediction is the placeholder served in place of a locked tip's
// prediction.
const LockedPrediction = "🔒 Subscribers only"

// TipResult is the settled outcome of a tip.
type TipResult string

const (
	ResultWon  TipResult = "WON"
	ResultLost TipResult = "LOST"
	ResultVoid TipResult = "VOID"
)

func (r TipResult) Valid() bool {
	switch r {
	case ResultWon, ResultLost, ResultVoid:
		return true
	}
	return false
}

// Tip is one published betting tip.
type Tip struct {
	ID          uuid.UUID
	TipsterID   uuid.UUID
	Title       string
	Sport       offer.Sport // empty = untagged
	Premium     bool
	Prediction  string
	Explanation *string
	Odds        float64
	Stake       int        // suggested stake, 1..10
	Result      *TipResult // nil until settled
	EventAt     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DenyReason tells a locked-out viewer what would unlock the content.
type DenyReason string

const (
	DenyLoginRequired        DenyReason = "login_required"
	DenySubscriptionRequired DenyReason = "subscription_required"
)

// Decision is the outcome of one access check.
type Decision struct {
	Allowed bool
	Reason  DenyReason // empty when Allowed
}

// TipView is a tip as served to a specific viewer. Locked views keep the
// public fields and blank the paid ones.
type TipView struct {
	ID         uuid.UUID   `json:"id"`
	TipsterID  uuid.UUID   `json:"tipster_id"`
	Title      string      `json:"title"`
	Sport      offer.Sport `json:"sport,omitempty"`
	Premium    bool        `json:"premium"`
	Locked     bool        `json:"locked"`
	LockReason DenyReason  `json:"lock_reason,omitempty"`

	// Paid fields; zeroed when Locked.
	Prediction  string  `json:"prediction"`
	Explanation *string `json:"explanation,omitempty"`
	Odds        float64 `json:"odds,omitempty"`
	Stake       int     `json:"stake,omitempty"`

	// Result is part of the tipster's public track record, so it is
	// served even on locked views.
	Result *TipResult `json:"result,omitempty"`

	EventAt   time.Time `json:"event_at"`
	CreatedAt time.Time `json:"created_at"`
}

// view renders the tip for a viewer according to the access decision.
func view(t Tip, d Decision) TipView {
	v := TipView{
		ID:        t.ID,
		TipsterID: t.TipsterID,
		Title:     t.Title,
		Sport:     t.Sport,
		Premium:   t.Premium,
		Result:    t.Result,
		EventAt:   t.EventAt,
		CreatedAt: t.CreatedAt,
	}
	if d.Allowed {
		v.Prediction = t.Prediction
		v.Explanation = t.Explanation
		v.Odds = t.Odds
		v.Stake = t.Stake
		return v
	}
	v.Locked = true
	v.LockReason = d.Reason
	v.Prediction = LockedPrediction
	return v
}
