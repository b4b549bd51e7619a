// Package tips exposes tip publishing, settlement, viewer-filtered
// feeds, tipster statistics, follows, and the per-tipster access summary
// over HTTP.
package tips

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tipvault/tipvault/core"
	"github.com/tipvault/tipvault/pkg/access"
	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/stats"
)

// Identity resolves the authenticated user of a request. Anonymous
// requests are served too; they just see everything locked.
type Identity func(r *http.Request) (uuid.UUID, bool)

// AccessEngine is the decision surface the module exposes over HTTP.
type AccessEngine interface {
	ViewTip(ctx context.Context, viewerID, tipID uuid.UUID) (access.TipView, error)
	TipsterFeed(ctx context.Context, viewerID, tipsterID uuid.UUID, limit int) ([]access.TipView, error)
	TipsterAccessSummary(ctx context.Context, viewerID, tipsterID uuid.UUID) (access.Summary, error)
	TipCounts(ctx context.Context, tipsterID uuid.UUID) (free, premium int, err error)
	PublishTip(ctx context.Context, tipsterID, actorID uuid.UUID, in access.PublishInput) (*access.Tip, error)
	SettleTip(ctx context.Context, tipID, actorID uuid.UUID, result access.TipResult) (*access.Tip, error)
}

// OfferLister lists the active offers shown next to a locked feed.
type OfferLister interface {
	ListByTipster(ctx context.Context, tipsterID uuid.UUID, includeInactive bool) ([]offer.Offer, error)
}

// FollowService manages the viewer's followed tipsters.
type FollowService interface {
	Follow(ctx context.Context, userID, tipsterID uuid.UUID) error
	Unfollow(ctx context.Context, userID, tipsterID uuid.UUID) error
	Following(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	IsFollowing(ctx context.Context, userID, tipsterID uuid.UUID) (bool, error)
	FollowerCount(ctx context.Context, tipsterID uuid.UUID) (int, error)
}

// StatsService computes tipster performance figures.
type StatsService interface {
	TipsterStats(ctx context.Context, tipsterID uuid.UUID, period stats.Period) (*stats.TipsterStats, error)
	TopPerformers(ctx context.Context, period stats.Period, limit int) ([]stats.TopPerformer, error)
}

// RouterOptions wires the tips module's dependencies.
type RouterOptions struct {
	Engine   AccessEngine
	Offers   OfferLister
	Follows  FollowService
	Stats    StatsService
	Identity Identity
	Log      *slog.Logger
}

// Router mounts the tips module.
func Router(opts RouterOptions) chi.Router {
	if opts.Identity == nil {
		panic("tips module: Identity is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	h := &handlers{
		engine:   opts.Engine,
		offers:   opts.Offers,
		follows:  opts.Follows,
		stats:    opts.Stats,
		identity: opts.Identity,
		log:      opts.Log,
	}

	r := chi.NewRouter()
	r.Get("/tips/{tipID}", h.getTip)
	r.Post("/tips/{tipID}/result", h.settleTip)
	r.Route("/tipsters/{tipsterID}", func(t chi.Router) {
		t.Get("/feed", h.feed)
		t.Get("/access", h.accessSummary)
		t.Get("/stats", h.tipsterStats)
		t.Post("/tips", h.publishTip)
	})
	r.Route("/follow", func(f chi.Router) {
		f.Get("/", h.followedTipsters)
		f.Get("/{tipsterID}/status", h.followStatus)
		f.Post("/{tipsterID}", h.follow)
		f.Delete("/{tipsterID}", h.unfollow)
	})
	r.Get("/stats/top-performers", h.topPerformers)
	return r
}

type handlers struct {
	engine   AccessEngine
	offers   OfferLister
	follows  FollowService
	stats    StatsService
	identity Identity
	log      *slog.Logger
}

// viewer returns the authenticated user or uuid.Nil for anonymous
// requests.
func (h *handlers) viewer(r *http.Request) uuid.UUID {
	if userID, ok := h.identity(r); ok {
		return userID
	}
	return uuid.Nil
}

func (h *handlers) getTip(w http.ResponseWriter, r *http.Request) {
	tipID, err := uuid.Parse(chi.URLParam(r, "tipID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}
	view, err := h.engine.ViewTip(r.Context(), h.viewer(r), tipID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, view)
}

func (h *handlers) feed(w http.ResponseWriter, r *http.Request) {
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	views, err := h.engine.TipsterFeed(r.Context(), h.viewer(r), tipsterID, limit)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, views)
}

type accessSummaryResponse struct {
	Owner      bool          `json:"owner"`
	Subscribed bool          `json:"subscribed"`
	AllSports  bool          `json:"all_sports"`
	Sports     []offer.Sport `json:"sports,omitempty"`
	// Subscription is the viewer's entitled row with this tipster; set
	// only for subscribers.
	Subscription *access.SubscriptionDetail `json:"subscription,omitempty"`
	FreeTips     int                        `json:"free_tips"`
	PaidTips     int                        `json:"paid_tips"`
	// Offers lists the tipster's active offers; omitted for the owner,
	// who has nothing to buy from themselves.
	Offers []offerSummary `json:"offers,omitempty"`
}

type offerSummary struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Price    int64          `json:"price"`
	Currency string         `json:"currency"`
	Duration offer.Duration `json:"duration"`
	Sports   []offer.Sport  `json:"sports,omitempty"`
}

func (h *handlers) accessSummary(w http.ResponseWriter, r *http.Request) {
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}
	viewerID := h.viewer(r)

	sum, err := h.engine.TipsterAccessSummary(r.Context(), viewerID, tipsterID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	free, premium, err := h.engine.TipCounts(r.Context(), tipsterID)
	if err != nil {
		core.WriteError(w, err)
		return
	}

	resp := accessSummaryResponse{
		Owner:        sum.Owner,
		Subscribed:   sum.Subscribed,
		AllSports:    sum.AllSports,
		Sports:       sum.Sports,
		Subscription: sum.Subscription,
		FreeTips:     free,
		PaidTips:     premium,
	}
	if !sum.Owner {
		offers, err := h.offers.ListByTipster(r.Context(), tipsterID, false)
		if err != nil {
			core.WriteError(w, err)
			return
		}
		for _, o := range offers {
			resp.Offers = append(resp.Offers, offerSummary{
				ID:       o.ID,
				Name:     o.Name,
				Price:    o.Price,
				Currency: o.Currency,
				Duration: o.Duration,
				Sports:   o.Sports,
			})
		}
	}
	core.WriteJSON(w, http.StatusOK, resp)
}

type publishRequest struct {
	Title       string      `json:"title"`
	Sport       offer.Sport `json:"sport"`
	Premium     bool        `json:"premium"`
	Prediction  string      `json:"prediction"`
	Explanation *string     `json:"explanation"`
	Odds        float64     `json:"odds"`
	Stake       int         `json:"stake"`
	EventAt     time.Time   `json:"event_at"`
}

func (h *handlers) publishTip(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, access.ErrForbidden)
		return
	}
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	tip, err := h.engine.PublishTip(r.Context(), tipsterID, userID, access.PublishInput{
		Title:       req.Title,
		Sport:       req.Sport,
		Premium:     req.Premium,
		Prediction:  req.Prediction,
		Explanation: req.Explanation,
		Odds:        req.Odds,
		Stake:       req.Stake,
		EventAt:     req.EventAt,
	})
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusCreated, map[string]any{"id": tip.ID, "premium": tip.Premium})
}

type settleRequest struct {
	Result access.TipResult `json:"result"`
}

func (h *handlers) settleTip(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, access.ErrForbidden)
		return
	}
	tipID, err := uuid.Parse(chi.URLParam(r, "tipID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	tip, err := h.engine.SettleTip(r.Context(), tipID, userID, req.Result)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"id": tip.ID, "result": tip.Result})
}

func (h *handlers) tipsterStats(w http.ResponseWriter, r *http.Request) {
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"), stats.PeriodAll)
	if err != nil {
		core.WriteError(w, err)
		return
	}

	st, err := h.stats.TipsterStats(r.Context(), tipsterID, period)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, st)
}

func (h *handlers) topPerformers(w http.ResponseWriter, r *http.Request) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"), stats.Period30d)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			core.WriteError(w, errors.Join(offer.ErrValidation, err))
			return
		}
	}

	board, err := h.stats.TopPerformers(r.Context(), period, limit)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	if board == nil {
		board = []stats.TopPerformer{}
	}
	core.WriteJSON(w, http.StatusOK, board)
}

func (h *handlers) followedTipsters(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, access.ErrForbidden)
		return
	}
	ids, err := h.follows.Following(r.Context(), userID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"tipster_ids": ids})
}

func (h *handlers) followStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, access.ErrForbidden)
		return
	}
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	following, err := h.follows.IsFollowing(r.Context(), userID, tipsterID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	count, err := h.follows.FollowerCount(r.Context(), tipsterID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"following": following, "follower_count": count})
}

func (h *handlers) follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, access.ErrForbidden)
		return
	}
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	if err := h.follows.Follow(r.Context(), userID, tipsterID); err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusCreated, map[string]any{"following": true})
}

func (h *handlers) unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		core.WriteError(w, access.ErrForbidden)
		return
	}
	tipsterID, err := uuid.Parse(chi.URLParam(r, "tipsterID"))
	if err != nil {
		core.WriteError(w, errors.Join(offer.ErrValidation, err))
		return
	}

	if err := h.follows.Unfollow(r.Context(), userID, tipsterID); err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"following": false})
}
