package access

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tipvault/tipvault/pkg/offer"
)

// Summary describes what one viewer can see of one tipster's feed.
type Summary struct {
	Owner      bool
	Subscribed bool
	// AllSports is set when any entitled offer has an unrestricted scope.
	AllSports bool
	// Sports lists the covered sports when access is scoped.
	Sports []offer.Sport
	// Subscription carries the entitled row backing the access. Nil for
	// owners and for viewers without one.
	Subscription *SubscriptionDetail
}

// SubscriptionDetail is the subscriber-facing slice of the entitled row.
type SubscriptionDetail struct {
	ID                uuid.UUID  `json:"id"`
	OfferID           uuid.UUID  `json:"offer_id"`
	OfferName         string     `json:"offer_name,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

// Engine is the access decision engine.
type Engine struct {
	tips         TipStore
	entitlements EntitlementSource
	offers       OfferScopes
	tipsters     offer.TipsterDirectory
	cache        grantCache
	log          *slog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithGrantCache caches resolved grants in Redis for the given TTL. Grants
// go a little stale after a purchase or cancellation, bounded by the TTL;
// keep it short.
func WithGrantCache(client *redis.Client, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = newRedisGrantCache(client, ttl)
	}
}

// NewEngine wires the access engine. Panics on nil dependencies to fail
// fast during initialization.
func NewEngine(tips TipStore, entitlements EntitlementSource, offers OfferScopes, tipsters offer.TipsterDirectory, log *slog.Logger, opts ...Option) *Engine {
	if tips == nil {
		panic("access: TipStore is required")
	}
	if entitlements == nil {
		panic("access: EntitlementSource is required")
	}
	if offers == nil {
		panic("access: OfferScopes is required")
	}
	if tipsters == nil {
		panic("access: TipsterDirectory is required")
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		tips:         tips,
		entitlements: entitlements,
		offers:       offers,
		tipsters:     tipsters,
		cache:        noopGrantCache{},
		log:          log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// grant is the resolved access of one viewer to one tipster's premium
// content.
type grant struct {
	Owner  bool          `json:"owner"`
	All    bool          `json:"all"`
	Sports []offer.Sport `json:"sports,omitempty"`
}

// covers reports whether the grant exposes content tagged with the given
// sport. An untagged tip is covered by any entitled subscription; this
// matches the historical behavior even though it arguably over-grants.
func (g grant) covers(sport offer.Sport) bool {
	if g.Owner || g.All {
		return true
	}
	if len(g.Sports) == 0 {
		return false
	}
	if sport == "" {
		return true
	}
	for _, s := range g.Sports {
		if s == sport {
			return true
		}
	}
	return false
}

func (g grant) subscribed() bool {
	return g.All || len(g.Sports) > 0
}

// grantFor resolves the viewer's grant against one tipster. Anonymous
// viewers get the zero grant and see only free content.
func (e *Engine) grantFor(ctx context.Context, viewerID, tipsterID uuid.UUID) (grant, error) {
	if viewerID == uuid.Nil {
		return grant{}, nil
	}

	if g, ok := e.cache.get(ctx, viewerID, tipsterID); ok {
		return g, nil
	}

	var g grant

	owner, err := e.tipsters.OwnerUserID(ctx, tipsterID)
	if err != nil && !errors.Is(err, offer.ErrTipsterNotFound) {
		return grant{}, err
	}
	if err == nil && owner == viewerID {
		g.Owner = true
		e.cache.put(ctx, viewerID, tipsterID, g)
		return g, nil
	}

	subs, err := e.entitlements.EntitledByUserAndTipster(ctx, viewerID, tipsterID)
	if err != nil {
		return grant{}, err
	}
	seen := make(map[offer.Sport]struct{})
	for _, sub := range subs {
		o, err := e.offers.Get(ctx, sub.OfferID)
		if err != nil {
			if errors.Is(err, offer.ErrNotFound) {
				// Offer hard-deleted after purchase; the row grants nothing
				// scoped anymore.
				continue
			}
			return grant{}, err
		}
		if len(o.Sports) == 0 {
			g.All = true
			break
		}
		for _, s := range o.Sports {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				g.Sports = append(g.Sports, s)
			}
		}
	}

	e.cache.put(ctx, viewerID, tipsterID, g)
	return g, nil
}

// decide applies a resolved grant to one tip. A denied anonymous viewer
// is told to log in; a denied authenticated one to subscribe.
func decide(viewerID uuid.UUID, g grant, tip *Tip) Decision {
	if !tip.Premium || g.covers(tip.Sport) {
		return Decision{Allowed: true}
	}
	if viewerID == uuid.Nil {
		return Decision{Reason: DenyLoginRequired}
	}
	return Decision{Reason: DenySubscriptionRequired}
}

// Decide reports whether the viewer may see the tip's paid fields and,
// when not, why.
func (e *Engine) Decide(ctx context.Context, viewerID uuid.UUID, tip *Tip) (Decision, error) {
	if !tip.Premium {
		return Decision{Allowed: true}, nil
	}
	g, err := e.grantFor(ctx, viewerID, tip.TipsterID)
	if err != nil {
		return Decision{}, err
	}
	return decide(viewerID, g, tip), nil
}

// CanViewTip reports whether the viewer may see the tip's paid fields.
func (e *Engine) CanViewTip(ctx context.Context, viewerID uuid.UUID, tip *Tip) (bool, error) {
	d, err := e.Decide(ctx, viewerID, tip)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// ViewTip loads one tip rendered for the viewer.
func (e *Engine) ViewTip(ctx context.Context, viewerID, tipID uuid.UUID) (TipView, error) {
	tip, err := e.tips.Get(ctx, tipID)
	if err != nil {
		return TipView{}, err
	}
	d, err := e.Decide(ctx, viewerID, tip)
	if err != nil {
		return TipView{}, err
	}
	return view(*tip, d), nil
}

// FilterForViewer renders a batch of tips for the viewer, resolving each
// distinct tipster's grant once. Order and length are preserved: locked
// tips stay in the feed as teasers.
func (e *Engine) FilterForViewer(ctx context.Context, viewerID uuid.UUID, tips []Tip) ([]TipView, error) {
	grants := make(map[uuid.UUID]grant)
	out := make([]TipView, 0, len(tips))
	for _, tip := range tips {
		if !tip.Premium {
			out = append(out, view(tip, Decision{Allowed: true}))
			continue
		}
		g, ok := grants[tip.TipsterID]
		if !ok {
			var err error
			g, err = e.grantFor(ctx, viewerID, tip.TipsterID)
			if err != nil {
				return nil, err
			}
			grants[tip.TipsterID] = g
		}
		out = append(out, view(tip, decide(viewerID, g, &tip)))
	}
	return out, nil
}

// TipsterFeed lists a tipster's latest tips rendered for the viewer.
func (e *Engine) TipsterFeed(ctx context.Context, viewerID, tipsterID uuid.UUID, limit int) ([]TipView, error) {
	tips, err := e.tips.ListByTipster(ctx, tipsterID, limit)
	if err != nil {
		return nil, err
	}
	return e.FilterForViewer(ctx, viewerID, tips)
}

// TipsterAccessSummary reports the viewer's standing with one tipster.
func (e *Engine) TipsterAccessSummary(ctx context.Context, viewerID, tipsterID uuid.UUID) (Summary, error) {
	g, err := e.grantFor(ctx, viewerID, tipsterID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{
		Owner:      g.Owner,
		Subscribed: g.Owner || g.subscribed(),
		AllSports:  g.Owner || g.All,
		Sports:     g.Sports,
	}
	if !g.Owner && g.subscribed() {
		sum.Subscription, err = e.subscriptionDetail(ctx, viewerID, tipsterID)
		if err != nil {
			return Summary{}, err
		}
	}
	return sum, nil
}

// subscriptionDetail resolves the entitled row backing a subscriber's
// access. With one live row per (user, offer) the first entitled row is
// the subscriber's agreement with this tipster.
func (e *Engine) subscriptionDetail(ctx context.Context, viewerID, tipsterID uuid.UUID) (*SubscriptionDetail, error) {
	subs, err := e.entitlements.EntitledByUserAndTipster(ctx, viewerID, tipsterID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	sub := subs[0]
	d := &SubscriptionDetail{
		ID:                sub.ID,
		OfferID:           sub.OfferID,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	o, err := e.offers.Get(ctx, sub.OfferID)
	if err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			return d, nil
		}
		return nil, err
	}
	d.OfferName = o.Name
	return d, nil
}

// TipCounts returns the tipster's free and premium tip counts.
func (e *Engine) TipCounts(ctx context.Context, tipsterID uuid.UUID) (free, premium int, err error) {
	return e.tips.CountByTipster(ctx, tipsterID)
}

// PublishInput describes a new tip.
type PublishInput struct {
	Title       string
	Sport       offer.Sport
	Premium     bool
	Prediction  string
	Explanation *string
	Odds        float64
	Stake       int
	EventAt     time.Time
}

// PublishTip validates and stores a new tip on behalf of the tipster's
// owner.
func (e *Engine) PublishTip(ctx context.Context, tipsterID, actorID uuid.UUID, in PublishInput) (*Tip, error) {
	owner, err := e.tipsters.OwnerUserID(ctx, tipsterID)
	if err != nil {
		return nil, err
	}
	if owner != actorID {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Prediction) == "" {
		return nil, errors.Join(ErrValidation, errors.New("prediction is required"))
	}
	if in.Odds < 1 {
		return nil, errors.Join(ErrValidation, errors.New("odds must be at least 1.0"))
	}
	if in.Stake < 1 || in.Stake > 10 {
		return nil, errors.Join(ErrValidation, errors.New("stake must be between 1 and 10"))
	}

	now := time.Now().UTC()
	tip := &Tip{
		ID:          uuid.New(),
		TipsterID:   tipsterID,
		Title:       strings.TrimSpace(in.Title),
		Sport:       in.Sport,
		Premium:     in.Premium,
		Prediction:  in.Prediction,
		Explanation: in.Explanation,
		Odds:        in.Odds,
		Stake:       in.Stake,
		EventAt:     in.EventAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.tips.Create(ctx, tip); err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "tip published",
		slog.String("tip_id", tip.ID.String()),
		slog.String("tipster_id", tipsterID.String()),
		slog.Bool("premium", tip.Premium))
	return tip, nil
}

// SettleTip records the tip's outcome on behalf of the tipster's owner.
// A settled tip never changes outcome again; that would silently rewrite
// the tipster's track record.
func (e *Engine) SettleTip(ctx context.Context, tipID, actorID uuid.UUID, result TipResult) (*Tip, error) {
	if !result.Valid() {
		return nil, errors.Join(ErrValidation, errors.New("result must be WON, LOST, or VOID"))
	}

	tip, err := e.tips.Get(ctx, tipID)
	if err != nil {
		return nil, err
	}
	owner, err := e.tipsters.OwnerUserID(ctx, tip.TipsterID)
	if err != nil {
		return nil, err
	}
	if owner != actorID {
		return nil, ErrForbidden
	}
	if tip.Result != nil {
		return nil, ErrAlreadySettled
	}

	now := time.Now().UTC()
	if err := e.tips.SetResult(ctx, tipID, result, now); err != nil {
		return nil, err
	}
	tip.Result = &result
	tip.UpdatedAt = now

	e.log.InfoContext(ctx, "tip settled",
		slog.String("tip_id", tipID.String()),
		slog.String("tipster_id", tip.TipsterID.String()),
		slog.String("result", string(result)))
	return tip, nil
}
