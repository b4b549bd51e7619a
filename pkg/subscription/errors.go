package subscription

import "errors"

var (
	// Error kinds callers branch on with errors.Is. Specific sentinels
	// below are joined onto one of these.
	ErrValidation       = errors.New("subscription: invalid input")
	ErrForbidden        = errors.New("subscription: actor does not own this resource")
	ErrNotFound         = errors.New("subscription: not found")
	ErrConflictingState = errors.New("subscription: operation conflicts with current state")
	ErrPayeeNotReady    = errors.New("subscription: tipster payee account is not charge-capable")

	ErrOfferInactive      = errors.New("subscription: offer is not active")
	ErrOwnOffer           = errors.New("subscription: tipsters cannot subscribe to their own offers")
	ErrAlreadySubscribed  = errors.New("subscription: user already has a live subscription to this offer")
	ErrCheckoutInFlight   = errors.New("subscription: a checkout for this offer is already in flight")
	ErrNotCancellable     = errors.New("subscription: one-time purchases cannot be cancelled")
	ErrMissingProviderRef = errors.New("subscription: no provider subscription reference")
)
