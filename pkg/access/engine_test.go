package access_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipvault/tipvault/pkg/access"
	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/subscription"
)

type stubDirectory struct {
	owners map[uuid.UUID]uuid.UUID
}

func (d stubDirectory) OwnerUserID(_ context.Context, tipsterID uuid.UUID) (uuid.UUID, error) {
	owner, ok := d.owners[tipsterID]
	if !ok {
		return uuid.Nil, offer.ErrTipsterNotFound
	}
	return owner, nil
}

type accessFixture struct {
	engine    *access.Engine
	tips      *access.MemTipStore
	ledger    *subscription.MemLedger
	offers    *offer.MemStore
	tipsterID uuid.UUID
	ownerID   uuid.UUID
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()
	f := &accessFixture{
		tips:      access.NewMemTipStore(),
		ledger:    subscription.NewMemLedger(),
		tipsterID: uuid.New(),
		ownerID:   uuid.New(),
	}
	f.offers = offer.NewMemStore(f.ledger)
	dir := stubDirectory{owners: map[uuid.UUID]uuid.UUID{f.tipsterID: f.ownerID}}
	f.engine = access.NewEngine(f.tips, f.ledger, f.offers, dir, slog.New(slog.DiscardHandler))
	return f
}

func (f *accessFixture) addTip(t *testing.T, sport offer.Sport, premium bool) *access.Tip {
	t.Helper()
	explanation := "value on the underdog"
	tip := &access.Tip{
		ID:          uuid.New(),
		TipsterID:   f.tipsterID,
		Title:       "Weekend pick",
		Sport:       sport,
		Premium:     premium,
		Prediction:  "Home win",
		Explanation: &explanation,
		Odds:        2.1,
		Stake:       5,
		EventAt:     time.Now().Add(24 * time.Hour),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.tips.Create(context.Background(), tip))
	return tip
}

// subscribe adds an entitled subscription to an offer scoped to the given
// sports; empty scope means unrestricted.
func (f *accessFixture) subscribe(t *testing.T, userID uuid.UUID, sports ...offer.Sport) *subscription.Subscription {
	t.Helper()
	o := &offer.Offer{
		ID:        uuid.New(),
		TipsterID: f.tipsterID,
		Name:      "Plan",
		Price:     1000,
		Currency:  "EUR",
		Duration:  offer.DurationMonthly,
		Sports:    sports,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.offers.Create(context.Background(), o))
	periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour)
	sub := &subscription.Subscription{
		ID:               uuid.New(),
		UserID:           userID,
		OfferID:          o.ID,
		TipsterID:        f.tipsterID,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: &periodEnd,
	}
	require.NoError(t, f.ledger.Create(context.Background(), sub))
	return sub
}

func TestEngineCanViewTip(t *testing.T) {
	t.Parallel()

	t.Run("free tips are visible to everyone", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, false)

		visible, err := f.engine.CanViewTip(context.Background(), uuid.Nil, tip)
		require.NoError(t, err)
		assert.True(t, visible)
	})

	t.Run("premium tips are hidden from anonymous viewers", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)

		visible, err := f.engine.CanViewTip(context.Background(), uuid.Nil, tip)
		require.NoError(t, err)
		assert.False(t, visible)
	})

	t.Run("the owner always sees their own tips", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)

		visible, err := f.engine.CanViewTip(context.Background(), f.ownerID, tip)
		require.NoError(t, err)
		assert.True(t, visible)
	})

	t.Run("sport-scoped subscription covers only its sports", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		football := f.addTip(t, offer.SportFootball, true)
		tennis := f.addTip(t, offer.SportTennis, true)
		viewer := uuid.New()
		f.subscribe(t, viewer, offer.SportFootball)

		visible, err := f.engine.CanViewTip(context.Background(), viewer, football)
		require.NoError(t, err)
		assert.True(t, visible)

		visible, err = f.engine.CanViewTip(context.Background(), viewer, tennis)
		require.NoError(t, err)
		assert.False(t, visible)
	})

	t.Run("unrestricted subscription covers every sport", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportEsports, true)
		viewer := uuid.New()
		f.subscribe(t, viewer)

		visible, err := f.engine.CanViewTip(context.Background(), viewer, tip)
		require.NoError(t, err)
		assert.True(t, visible)
	})

	t.Run("untagged premium tip is covered by any subscription", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, "", true)
		viewer := uuid.New()
		f.subscribe(t, viewer, offer.SportHandball)

		visible, err := f.engine.CanViewTip(context.Background(), viewer, tip)
		require.NoError(t, err)
		assert.True(t, visible)
	})
}

func TestEngineDecide(t *testing.T) {
	t.Parallel()

	t.Run("anonymous denial asks for login", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)

		d, err := f.engine.Decide(context.Background(), uuid.Nil, tip)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, access.DenyLoginRequired, d.Reason)
	})

	t.Run("authenticated denial asks for a subscription", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)

		d, err := f.engine.Decide(context.Background(), uuid.New(), tip)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, access.DenySubscriptionRequired, d.Reason)
	})

	t.Run("allowed decisions carry no reason", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, false)

		d, err := f.engine.Decide(context.Background(), uuid.Nil, tip)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Empty(t, d.Reason)
	})
}

func TestEngineFilterForViewer(t *testing.T) {
	t.Parallel()

	t.Run("locked tips stay in the feed redacted", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		free := f.addTip(t, offer.SportFootball, false)
		premium := f.addTip(t, offer.SportFootball, true)

		views, err := f.engine.FilterForViewer(context.Background(), uuid.Nil, []access.Tip{*free, *premium})
		require.NoError(t, err)
		require.Len(t, views, 2, "filtering never drops tips")

		assert.False(t, views[0].Locked)
		assert.Equal(t, "Home win", views[0].Prediction)

		locked := views[1]
		assert.True(t, locked.Locked)
		assert.Equal(t, access.DenyLoginRequired, locked.LockReason)
		assert.Equal(t, access.LockedPrediction, locked.Prediction)
		assert.Nil(t, locked.Explanation)
		assert.Zero(t, locked.Odds)
		assert.Zero(t, locked.Stake)
		assert.Equal(t, premium.ID, locked.ID, "public fields survive redaction")
		assert.Equal(t, offer.SportFootball, locked.Sport)
	})

	t.Run("subscriber sees covered tips unlocked", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		football := f.addTip(t, offer.SportFootball, true)
		tennis := f.addTip(t, offer.SportTennis, true)
		viewer := uuid.New()
		f.subscribe(t, viewer, offer.SportFootball)

		views, err := f.engine.FilterForViewer(context.Background(), viewer, []access.Tip{*football, *tennis})
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.False(t, views[0].Locked)
		assert.True(t, views[1].Locked)
	})
}

func TestEngineTipsterAccessSummary(t *testing.T) {
	t.Parallel()

	t.Run("owner has full access", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)

		sum, err := f.engine.TipsterAccessSummary(context.Background(), f.ownerID, f.tipsterID)
		require.NoError(t, err)
		assert.True(t, sum.Owner)
		assert.True(t, sum.AllSports)
		assert.Nil(t, sum.Subscription, "owners hold no subscription to themselves")
	})

	t.Run("anonymous viewer has nothing", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)

		sum, err := f.engine.TipsterAccessSummary(context.Background(), uuid.Nil, f.tipsterID)
		require.NoError(t, err)
		assert.False(t, sum.Subscribed)
		assert.False(t, sum.AllSports)
		assert.Empty(t, sum.Sports)
		assert.Nil(t, sum.Subscription)
	})

	t.Run("scoped subscriber reports covered sports", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		viewer := uuid.New()
		f.subscribe(t, viewer, offer.SportFootball, offer.SportRugby)

		sum, err := f.engine.TipsterAccessSummary(context.Background(), viewer, f.tipsterID)
		require.NoError(t, err)
		assert.True(t, sum.Subscribed)
		assert.False(t, sum.AllSports)
		assert.ElementsMatch(t, []offer.Sport{offer.SportFootball, offer.SportRugby}, sum.Sports)
	})

	t.Run("subscriber summary carries the entitled row", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		viewer := uuid.New()
		sub := f.subscribe(t, viewer, offer.SportFootball)

		sum, err := f.engine.TipsterAccessSummary(context.Background(), viewer, f.tipsterID)
		require.NoError(t, err)
		require.NotNil(t, sum.Subscription)
		assert.Equal(t, sub.ID, sum.Subscription.ID)
		assert.Equal(t, sub.OfferID, sum.Subscription.OfferID)
		assert.Equal(t, "Plan", sum.Subscription.OfferName)
		require.NotNil(t, sum.Subscription.CurrentPeriodEnd)
		assert.WithinDuration(t, *sub.CurrentPeriodEnd, *sum.Subscription.CurrentPeriodEnd, time.Second)
		assert.False(t, sum.Subscription.CancelAtPeriodEnd)
	})
}

func TestEnginePublishTip(t *testing.T) {
	t.Parallel()

	t.Run("owner publishes a tip", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)

		tip, err := f.engine.PublishTip(context.Background(), f.tipsterID, f.ownerID, access.PublishInput{
			Title:      "Derby day",
			Sport:      offer.SportFootball,
			Premium:    true,
			Prediction: "Over 2.5 goals",
			Odds:       1.85,
			Stake:      7,
			EventAt:    time.Now().Add(48 * time.Hour),
		})

		require.NoError(t, err)
		stored, err := f.tips.Get(context.Background(), tip.ID)
		require.NoError(t, err)
		assert.True(t, stored.Premium)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)

		_, err := f.engine.PublishTip(context.Background(), f.tipsterID, uuid.New(), access.PublishInput{
			Prediction: "Home win",
			Odds:       2.0,
			Stake:      5,
		})

		require.ErrorIs(t, err, access.ErrForbidden)
	})
}

func TestEngineSettleTip(t *testing.T) {
	t.Parallel()

	t.Run("owner records the outcome", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)

		settled, err := f.engine.SettleTip(context.Background(), tip.ID, f.ownerID, access.ResultWon)
		require.NoError(t, err)
		require.NotNil(t, settled.Result)
		assert.Equal(t, access.ResultWon, *settled.Result)

		stored, err := f.tips.Get(context.Background(), tip.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Result)
		assert.Equal(t, access.ResultWon, *stored.Result)
	})

	t.Run("result is served even on locked views", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)
		_, err := f.engine.SettleTip(context.Background(), tip.ID, f.ownerID, access.ResultLost)
		require.NoError(t, err)

		view, err := f.engine.ViewTip(context.Background(), uuid.Nil, tip.ID)
		require.NoError(t, err)
		assert.True(t, view.Locked)
		require.NotNil(t, view.Result)
		assert.Equal(t, access.ResultLost, *view.Result)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)

		_, err := f.engine.SettleTip(context.Background(), tip.ID, uuid.New(), access.ResultWon)
		require.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("rejects unknown results", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)

		_, err := f.engine.SettleTip(context.Background(), tip.ID, f.ownerID, access.TipResult("DRAW"))
		require.ErrorIs(t, err, access.ErrValidation)
	})

	t.Run("a settled tip cannot change outcome", func(t *testing.T) {
		t.Parallel()
		f := newAccessFixture(t)
		tip := f.addTip(t, offer.SportFootball, true)
		_, err := f.engine.SettleTip(context.Background(), tip.ID, f.ownerID, access.ResultWon)
		require.NoError(t, err)

		_, err = f.engine.SettleTip(context.Background(), tip.ID, f.ownerID, access.ResultLost)
		require.ErrorIs(t, err, access.ErrAlreadySettled)
	})
}
