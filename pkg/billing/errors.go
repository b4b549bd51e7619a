package billing

import "errors"

var (
	ErrMissingAPIKey        = errors.New("billing: processor API key is required")
	ErrMissingWebhookSecret = errors.New("billing: webhook secret is required")
	ErrInvalidEnvironment   = errors.New("billing: invalid processor environment")

	// ErrWebhookSignature marks a notification that failed signature
	// verification. Rejected outright; the processor owns retry.
	ErrWebhookSignature = errors.New("billing: webhook signature verification failed")

	// ErrRemoteTransient marks gateway timeouts and 5xx-class failures.
	// Idempotent operations retry on it; checkout creation does not.
	ErrRemoteTransient = errors.New("billing: transient processor failure")

	ErrNoCheckoutURL   = errors.New("billing: no checkout URL returned by processor")
	ErrPriceNotFound   = errors.New("billing: remote price reference does not resolve")
	ErrAccountNotFound = errors.New("billing: payee account not found")
	ErrAccountExists   = errors.New("billing: payee account already exists")
)
