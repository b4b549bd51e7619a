// Package fees computes the platform commission applied to tipster
// subscription revenue.
//
// The commission is tiered on the tipster's active-subscriber count: the
// more paying subscribers a tipster has, the smaller the platform's cut.
// The percent is computed once at checkout time from a point-in-time
// subscriber count and embedded into the checkout artifact; it never
// changes retroactively for subscriptions that already exist.
package fees

import (
	"errors"
	"fmt"
)

// Tier maps a minimum active-subscriber count to a commission percent.
type Tier struct {
	MinSubscribers int
	Percent        int
}

// Schedule is a descending-threshold tier table. The first tier whose
// MinSubscribers the count meets or exceeds wins, so the table must be
// ordered by MinSubscribers descending and terminated by a zero-threshold
// base tier.
type Schedule []Tier

// DefaultSchedule returns the platform's standard commission tiers.
func DefaultSchedule() Schedule {
	return Schedule{
		{MinSubscribers: 100, Percent: 5},
		{MinSubscribers: 50, Percent: 8},
		{MinSubscribers: 0, Percent: 10},
	}
}

var (
	ErrEmptySchedule     = errors.New("fees: schedule has no tiers")
	ErrUnorderedSchedule = errors.New("fees: tiers must be ordered by threshold descending")
	ErrNoBaseTier        = errors.New("fees: schedule must end with a zero-threshold base tier")
	ErrInvalidPercent    = errors.New("fees: percent must be between 0 and 100")
)

// Validate checks the structural invariants of the schedule.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return ErrEmptySchedule
	}
	prev := -1
	for i, t := range s {
		if t.Percent < 0 || t.Percent > 100 {
			return errors.Join(ErrInvalidPercent, fmt.Errorf("tier %d: %d%%", i, t.Percent))
		}
		if t.MinSubscribers < 0 {
			return errors.Join(ErrUnorderedSchedule, fmt.Errorf("tier %d: negative threshold", i))
		}
		if prev >= 0 && t.MinSubscribers >= prev {
			return errors.Join(ErrUnorderedSchedule, fmt.Errorf("tier %d: threshold %d not below %d", i, t.MinSubscribers, prev))
		}
		prev = t.MinSubscribers
	}
	if s[len(s)-1].MinSubscribers != 0 {
		return ErrNoBaseTier
	}
	return nil
}

// PercentFor returns the commission percent for the given active-subscriber
// count. Pure and side-effect free; safe for concurrent use.
func (s Schedule) PercentFor(activeSubscribers int) int {
	for _, t := range s {
		if activeSubscribers >= t.MinSubscribers {
			return t.Percent
		}
	}
	// Unreachable for a validated schedule; keep the base rate as a
	// safety net for hand-built tables.
	return 10
}

// ApplicationFee returns the platform's absolute cut of an amount in minor
// currency units, rounded half away from zero.
func ApplicationFee(amount int64, percent int) int64 {
	return (amount*int64(percent) + 50) / 100
}
