package core

import (
	"errors"
	"net/http"

	"github.com/tipvault/tipvault/pkg/access"
	"github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/follow"
	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/stats"
	"github.com/tipvault/tipvault/pkg/subscription"
)

// mapError translates a domain error into an HTTP status and error body.
// Validation failures are 422, ownership failures 403, missing resources
// 404, state conflicts 409. A payee account that cannot accept charges is
// its own 409 code so clients can route the tipster to onboarding.
// Transient processor failures surface as 502 with a retry hint.
func mapError(err error) (int, ErrorDetail) {
	switch {
	case errors.Is(err, offer.ErrPayeeNotReady) || errors.Is(err, subscription.ErrPayeeNotReady):
		return http.StatusConflict, ErrorDetail{Code: "payee_not_ready", Message: "payout account cannot accept charges yet"}

	case errors.Is(err, subscription.ErrCheckoutInFlight):
		return http.StatusConflict, ErrorDetail{Code: "checkout_in_flight", Message: "a checkout for this offer is already in progress"}

	case errors.Is(err, subscription.ErrAlreadySubscribed):
		return http.StatusConflict, ErrorDetail{Code: "already_subscribed", Message: "you already have a live subscription to this offer"}

	case errors.Is(err, offer.ErrTermsFrozen):
		return http.StatusConflict, ErrorDetail{Code: "terms_frozen", Message: "price and duration cannot change while the offer has active subscribers"}

	case errors.Is(err, follow.ErrAlreadyFollowing):
		return http.StatusConflict, ErrorDetail{Code: "already_following", Message: "you already follow this tipster"}

	case errors.Is(err, follow.ErrNotFollowing):
		return http.StatusConflict, ErrorDetail{Code: "not_following", Message: "you do not follow this tipster"}

	case errors.Is(err, access.ErrAlreadySettled):
		return http.StatusConflict, ErrorDetail{Code: "already_settled", Message: "this tip already has a recorded result"}

	case errors.Is(err, offer.ErrValidation) || errors.Is(err, subscription.ErrValidation) ||
		errors.Is(err, access.ErrValidation) || errors.Is(err, follow.ErrSelfFollow) ||
		errors.Is(err, stats.ErrValidation):
		return http.StatusUnprocessableEntity, ErrorDetail{Code: "validation_error", Message: err.Error()}

	case errors.Is(err, offer.ErrForbidden) || errors.Is(err, subscription.ErrForbidden) || errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, ErrorDetail{Code: "forbidden"}

	case errors.Is(err, offer.ErrNotFound) || errors.Is(err, subscription.ErrNotFound) ||
		errors.Is(err, access.ErrNotFound) || errors.Is(err, offer.ErrTipsterNotFound):
		return http.StatusNotFound, ErrorDetail{Code: "not_found"}

	case errors.Is(err, offer.ErrConflictingState) || errors.Is(err, subscription.ErrConflictingState):
		return http.StatusConflict, ErrorDetail{Code: "conflict", Message: err.Error()}

	case errors.Is(err, billing.ErrWebhookSignature):
		return http.StatusBadRequest, ErrorDetail{Code: "invalid_signature"}

	case errors.Is(err, billing.ErrRemoteTransient):
		return http.StatusBadGateway, ErrorDetail{Code: "payment_provider_unavailable", Retryable: true}

	case errors.Is(err, offer.ErrGatewaySyncFailed):
		return http.StatusBadGateway, ErrorDetail{Code: "payment_provider_error"}

	default:
		return http.StatusInternalServerError, ErrorDetail{Code: "internal_error"}
	}
}
