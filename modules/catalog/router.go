// Package catalog exposes the tipster offer catalog over HTTP.
package catalog

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
	"github.com/tipvault/tipvault/pkg/offer"
)

// Identity resolves the authenticated user of a request.
type Identity func(r *http.Request) (uuid.UUID, bool)

// OfferService is the catalog surface the module exposes over HTTP.
type OfferService interface {
	Create(ctx context.Context, tipsterID, actorID uuid.UUID, in offer.CreateInput) (*offer.Offer, error)
	Update(ctx context.Context, offerID, actorID uuid.UUID, patch offer.UpdateInput) (*offer.Offer, error)
	Delete(ctx context.Context, offerID, actorID uuid.UUID) (offer.DeleteOutcome, error)
	Get(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error)
	ListByTipster(ctx context.Context, tipsterID uuid.UUID, includeInactive bool) ([]offer.Offer, error)
}

// RouterOptions wires the catalog module's dependencies.
type RouterOptions struct {
	Offers   OfferService
	Tipsters offer.TipsterDirectory
	Identity Identity
	Log      *slog.Logger
}

// Router mounts the catalog module.
func Router(opts RouterOptions) chi.Router {
	if opts.Identity == nil {
		panic("catalog module: Identity is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	h := &handlers{offers: opts.Offers, tipsters: opts.Tipsters, identity: opts.Identity, log: opts.Log}

	r := chi.NewRouter()
	r.Route("/tipsters/{tipsterID}/offers", func(t chi.Router) {
		t.Get("/", h.listOffers)
		t.Post("/", h.createOffer)
	})
	r.Route("/offers/{offerID}", func(o chi.Router) {
		o.Get("/", h.getOffer)
		o.Patch("/", h.updateOffer)
		o.Delete("/", h.deleteOffer)
	})
	return r
}

type handlers struct {
	offers   OfferService
	tipsters offer.TipsterDirectory
	identity Identity
	log      *slog.Logger
}

type offerRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Currency    string         `json:"currency"`
	Duration    offer.Duration `json:"duration"`
	Sports      []offer.Sport  `json:"sports"`
	TrialDays   int            `json:"trial_days"`
}

type offerPatchRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Price       *int64          `json:"price"`
	Duration    *offer.Duration `json:"duration"`
	Sports      []offer.Sport   `json:"sports"`
	TrialDays   *int            `json:"trial_days"`
	Active      *bool           `json:"active"`
}

type offerResponse struct {
	ID          uuid.UUID      `json:"id"`
	TipsterID   uuid.UUID      `json:"tipster_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Price       int64          `json:"price"`
	Currency    string         `json:"currency"`
	Duration    offer.Duration `json:"duration"`
	Sports      []offer.Sport  `json:"sports,omitempty"`
	TrialDays   int            `json:"trial_days,omitempty"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toOfferResponse(o *offer.Offer) offerResponse {
	return offerResponse{
		ID:          o.ID,
		TipsterID:   o.TipsterID,
		Name:        o.Name,
		Description: o.Description,
		Price:       o.Price,
		Currency:    o.Currency,
		Duration:    o.Duration,
		Sports:      o.Sports,
		TrialDays:   o.TrialDays,
		Active:      o.Active,
		CreatedAt:   o.CreatedAt,
	}
}

func (h *handlers) createOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, offer.ErrForbidden)
		return
	}
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	o, err := h.offers.Create(r.Context(), tipsterID, userID, offer.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Duration:    req.Duration,
		Sports:      req.Sports,
		TrialDays:   req.TrialDays,
	})
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusCreated, toOfferResponse(o))
}

func (h *handlers) updateOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, offer.ErrForbidden)
		return
	}
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	var req offerPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	o, err := h.offers.Update(r.Context(), offerID, userID, offer.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Duration:    req.Duration,
		Sports:      req.Sports,
		TrialDays:   req.TrialDays,
		Active:      req.Active,
	})
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, toOfferResponse(o))
}

func (h *handlers) deleteOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, offer.ErrForbidden)
		return
	}
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	outcome, err := h.offers.Delete(r.Context(), offerID, userID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

func (h *handlers) getOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}
	o, err := h.offers.Get(r.Context(), offerID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, toOfferResponse(o))
}

// listOffers returns a tipster's offers. Inactive offers are included only
// for the owner.
func (h *handlers) listOffers(w http.ResponseWriter, r *http.Request) {
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	includeInactive := false
	if userID, ok := h.identity(r); ok {
		owner, err := h.tipsters.OwnerUserID(r.Context(), tipsterID)
		if err == nil && owner == userID {
			includeInactive = true
		}
	}

	offers, err := h.offers.ListByTipster(r.Context(), tipsterID, includeInactive)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	out := make([]offerResponse, 0, len(offers))
	for i := range offers {
		out = append(out, toOfferResponse(&offers[i]))
	}
	core.WriteJSON(w, http.StatusOK, out)
}
