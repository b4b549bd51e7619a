package offer

import "errors"

var (
	// Error kinds callers branch on with errors.Is. Package-specific
	// sentinels below are joined onto one of these.
	ErrValidation       = errors.New("offer: invalid input")
	ErrForbidden        = errors.New("offer: actor does not own this resource")
	ErrNotFound         = errors.New("offer: not found")
	ErrConflictingState = errors.New("offer: operation conflicts with current state")
	ErrPayeeNotReady    = errors.New("offer: tipster payee account is not charge-capable")

	ErrPriceBelowMinimum = errors.New("offer: price below minimum unit")
	ErrUnknownDuration   = errors.New("offer: unknown duration class")
	ErrTermsFrozen       = errors.New("offer: price and duration are frozen while the offer has active subscribers")
	ErrGatewaySyncFailed = errors.New("offer: remote product/price sync failed")
	ErrTipsterNotFound   = errors.New("offer: tipster not found")
)
