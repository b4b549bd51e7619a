// Package offer manages the catalog of priced subscription plans tipsters
// sell access through.
//
// An offer's economically significant terms (price, duration) are frozen
// while it has active subscribers; the catalog enforces this, not the
// database. Remote product/price references are set only after a
// successful gateway sync.
package offer

import (
	"time"

	"github.com/google/uuid"
)

// Sport identifies the sport a tip or an offer scope refers to.
type Sport string

const (
	SportFootball   Sport = "FOOTBALL"
	SportTennis     Sport = "TENNIS"
	SportBasketball Sport = "BASKETBALL"
	SportRugby      Sport = "RUGBY"
	SportHandball   Sport = "HANDBALL"
	SportEsports    Sport = "ESPORTS"
)

// Duration is the billing duration class of an offer.
type Duration string

const (
	DurationWeekly   Duration = "WEEKLY"
	DurationMonthly  Duration = "MONTHLY"
	DurationYearly   Duration = "YEARLY"
	DurationLifetime Duration = "LIFETIME"
)

// Valid reports whether d is a known duration class.
func (d Duration) Valid() bool {
	switch d {
	case DurationWeekly, DurationMonthly, DurationYearly, DurationLifetime:
		return true
	}
	return false
}

// Recurring reports whether the duration bills repeatedly. Lifetime offers
// are a single one-time charge.
func (d Duration) Recurring() bool {
	return d != DurationLifetime
}

// MinPrice is the smallest accepted offer price in minor currency units.
const MinPrice int64 = 100

// Offer is a tipster-defined priced plan granting access to premium tips.
type Offer struct {
	ID          uuid.UUID
	TipsterID   uuid.UUID
	Name        string
	Description string
	Price       int64 // minor currency units
	Currency    string
	Duration    Duration
	Sports      []Sport // empty = unrestricted
	TrialDays   int
	Active      bool
	// Remote references, set only after a successful gateway sync.
	ProviderProductID string
	ProviderPriceID   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
