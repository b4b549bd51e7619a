package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tipvault/tipvault/core"
	pay "github.com/tipvault/tipvault/pkg/billing"
	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/subscription"
)

// SubscriptionService is the slice of the subscription service the module
// exposes over HTTP.
type SubscriptionService interface {
	CreateCheckout(ctx context.Context, userID uuid.UUID, in subscription.CheckoutInput) (*pay.Checkout, error)
	Cancel(ctx context.Context, subscriptionID, actorID uuid.UUID, immediate bool) (*subscription.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]subscription.Subscription, error)
}

// PayeeService is the payee-onboarding surface the module exposes.
type PayeeService interface {
	AccountStatus(ctx context.Context, tipsterID uuid.UUID) (pay.AccountStatusView, error)
	OnboardingLink(ctx context.Context, tipsterID uuid.UUID, email, returnURL, refreshURL string) (string, error)
}

type handlers struct {
	subs     SubscriptionService
	payees   PayeeService
	tipsters offer.TipsterDirectory
	identity Identity
	log      *slog.Logger
}

type checkoutRequest struct {
	OfferID    uuid.UUID `json:"offer_id"`
	SuccessURL string    `json:"success_url"`
	CancelURL  string    `json:"cancel_url"`
}

type checkoutResponse struct {
	URL       string     `json:"url"`
	SessionID string     `json:"session_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, subscription.ErrForbidden)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, errors.Join(subscription.ErrValidation, err))
		return
	}
	if req.OfferID == uuid.Nil {
		core.WriteError(w, errors.Join(subscription.ErrValidation, errors.New("offer_id is required")))
		return
	}

	checkout, err := h.subs.CreateCheckout(r.Context(), userID, subscription.CheckoutInput{
		OfferID:    req.OfferID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		core.WriteError(w, err)
		return
	}

	resp := checkoutResponse{URL: checkout.URL, SessionID: checkout.SessionID}
	if !checkout.ExpiresAt.IsZero() {
		resp.ExpiresAt = &checkout.ExpiresAt
	}
	core.WriteJSON(w, http.StatusCreated, resp)
}

type subscriptionResponse struct {
	ID                uuid.UUID  `json:"id"`
	OfferID           uuid.UUID  `json:"offer_id"`
	TipsterID         uuid.UUID  `json:"tipster_id"`
	Status            string     `json:"status"`
	OneTime           bool       `json:"one_time"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	TrialEnd          *time.Time `json:"trial_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toSubscriptionResponse(s subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                s.ID,
		OfferID:           s.OfferID,
		TipsterID:         s.TipsterID,
		Status:            string(s.Status),
		OneTime:           s.OneTime,
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
		TrialEnd:          s.TrialEnd,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		CreatedAt:         s.CreatedAt,
	}
}

func (h *handlers) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, subscription.ErrForbidden)
		return
	}

	subs, err := h.subs.ListByUser(r.Context(), userID)
	if err != nil {
		core.WriteError(w, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriptionResponse(s))
	}
	core.WriteJSON(w, http.StatusOK, out)
}

func (h *handlers) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, subscription.ErrForbidden)
		return
	}

	subID, err := uuid.Parse(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		core.WriteError(w, errors.Join(subscription.ErrValidation, err))
		return
	}

	var req struct {
		Immediate bool `json:"immediate"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.WriteError(w, errors.Join(subscription.ErrValidation, err))
			return
		}
	}

	sub, err := h.subs.Cancel(r.Context(), subID, userID, req.Immediate)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, toSubscriptionResponse(*sub))
}

// requireTipsterOwner resolves the tipster from the request and verifies
// the authenticated user owns it.
func (h *handlers) requireTipsterOwner(r *http.Request, userID, tipsterID uuid.UUID) error {
	owner, err := h.tipsters.OwnerUserID(r.Context(), tipsterID)
	if err != nil {
		return err
	}
	if owner != userID {
		return offer.ErrForbidden
	}
	return nil
}

func (h *handlers) payeeStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, subscription.ErrForbidden)
		return
	}
	tipsterID, err := uuid.Parse(r.URL.Query().Get("tipster_id"))
	if err != nil {
		core.WriteError(w, errors.Join(subscription.ErrValidation, errors.New("tipster_id is required")))
		return
	}
	if err := h.requireTipsterOwner(r, userID, tipsterID); err != nil {
		core.WriteError(w, err)
		return
	}

	status, err := h.payees.AccountStatus(r.Context(), tipsterID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, status)
}

func (h *handlers) payeeOnboardingLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, subscription.ErrForbidden)
		return
	}

	var req struct {
		TipsterID  uuid.UUID `json:"tipster_id"`
		Email      string    `json:"email"`
		ReturnURL  string    `json:"return_url"`
		RefreshURL string    `json:"refresh_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, errors.Join(subscription.ErrValidation, err))
		return
	}
	if err := h.requireTipsterOwner(r, userID, req.TipsterID); err != nil {
		core.WriteError(w, err)
		return
	}

	url, err := h.payees.OnboardingLink(r.Context(), req.TipsterID, req.Email, req.ReturnURL, req.RefreshURL)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}
