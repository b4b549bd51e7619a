package stats_test

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
	"github.com/tipvault/tipvault/pkg/stats"
	"github.com/tipvault/tipvault/pkg/tipster"
)

type fixture struct {
	svc      *stats.Service
	tips     *access.MemTipStore
	tipsters *tipster.MemStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tips := access.NewMemTipStore()
	tipsters := tipster.NewMemStore()
	return &fixture{
		svc:      stats.NewService(tips, tipsters, slog.New(slog.DiscardHandler)),
		tips:     tips,
		tipsters: tipsters,
	}
}

func (f *fixture) addTipster(t *testing.T, name string) uuid.UUID {
	t.Helper()
	tp := &tipster.Tipster{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.tipsters.Create(context.Background(), tp))
	return tp.ID
}

func (f *fixture) addTip(t *testing.T, tipsterID uuid.UUID, odds float64, stake int, result *access.TipResult, createdAt time.Time) {
	t.Helper()
	require.NoError(t, f.tips.Create(context.Background(), &access.Tip{
		ID:         uuid.New(),
		TipsterID:  tipsterID,
		Title:      "pick",
		Prediction: "home win",
		Odds:       odds,
		Stake:      stake,
		Result:     result,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}))
}

func resultOf(r access.TipResult) *access.TipResult { return &r }

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	p, err := stats.ParsePeriod("", stats.Period30d)
	require.NoError(t, err)
	assert.Equal(t, stats.Period30d, p)

	p, err = stats.ParsePeriod("7d", stats.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, stats.Period7d, p)

	_, err = stats.ParsePeriod("fortnight", stats.PeriodAll)
	assert.ErrorIs(t, err, stats.ErrValidation)
}

func TestTipsterStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("computes the full figure set", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		tipsterID := f.addTipster(t, "Ivy")

		// Two wins, one loss, one void, one pending.
		f.addTip(t, tipsterID, 2.0, 2, resultOf(access.ResultWon), now.Add(-5*time.Hour))
		f.addTip(t, tipsterID, 3.0, 1, resultOf(access.ResultWon), now.Add(-4*time.Hour))
		f.addTip(t, tipsterID, 1.5, 2, resultOf(access.ResultLost), now.Add(-3*time.Hour))
		f.addTip(t, tipsterID, 2.5, 1, resultOf(access.ResultVoid), now.Add(-2*time.Hour))
		f.addTip(t, tipsterID, 4.0, 1, nil, now.Add(-time.Hour))

		st, err := f.svc.TipsterStats(ctx, tipsterID, stats.PeriodAll)
		require.NoError(t, err)

		assert.Equal(t, 5, st.TotalTips)
		assert.Equal(t, 4, st.SettledTips)
		assert.Equal(t, 1, st.PendingTips)
		assert.Equal(t, 2, st.WonTips)
		assert.Equal(t, 1, st.LostTips)
		assert.Equal(t, 1, st.VoidTips)

		// 2 of 3 decisive tips won.
		assert.InDelta(t, 66.67, st.WinRate, 0.001)
		// Staked 6 units, returned 2*2 + 1*3 + 1 = 8, profit 2.
		assert.InDelta(t, 2.0, st.Profit, 0.001)
		assert.InDelta(t, 33.33, st.ROI, 0.001)
		assert.InDelta(t, 2.6, st.AverageOdds, 0.001)
		assert.InDelta(t, 0.4, st.Yield, 0.001)
		assert.Equal(t, 2, st.LongestWinStreak)
		assert.Equal(t, 1, st.LongestLoseStreak)
	})

	t.Run("empty history yields zeroes", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		tipsterID := f.addTipster(t, "Ivy")

		st, err := f.svc.TipsterStats(ctx, tipsterID, stats.PeriodAll)
		require.NoError(t, err)
		assert.Zero(t, st.TotalTips)
		assert.Zero(t, st.WinRate)
		assert.Zero(t, st.ROI)
	})

	t.Run("void runs do not break a streak", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		tipsterID := f.addTipster(t, "Ivy")

		f.addTip(t, tipsterID, 2.0, 1, resultOf(access.ResultWon), now.Add(-4*time.Hour))
		f.addTip(t, tipsterID, 2.0, 1, resultOf(access.ResultVoid), now.Add(-3*time.Hour))
		f.addTip(t, tipsterID, 2.0, 1, resultOf(access.ResultWon), now.Add(-2*time.Hour))

		st, err := f.svc.TipsterStats(ctx, tipsterID, stats.PeriodAll)
		require.NoError(t, err)
		assert.Equal(t, 2, st.LongestWinStreak)
	})

	t.Run("period excludes older tips", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		tipsterID := f.addTipster(t, "Ivy")

		f.addTip(t, tipsterID, 2.0, 1, resultOf(access.ResultWon), now.Add(-60*24*time.Hour))
		f.addTip(t, tipsterID, 2.0, 1, resultOf(access.ResultLost), now.Add(-time.Hour))

		st, err := f.svc.TipsterStats(ctx, tipsterID, stats.Period30d)
		require.NoError(t, err)
		assert.Equal(t, 1, st.TotalTips)
		assert.Equal(t, 1, st.LostTips)
	})

	t.Run("unknown tipster is not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.TipsterStats(ctx, uuid.New(), stats.PeriodAll)
		assert.ErrorIs(t, err, offer.ErrTipsterNotFound)
	})
}

func TestTopPerformers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()

	// seed creates a tipster with n settled tips, winning the given share.
	seed := func(t *testing.T, f *fixture, name string, wins, losses int) uuid.UUID {
		t.Helper()
		id := f.addTipster(t, name)
		at := now.Add(-time.Hour)
		for range wins {
			f.addTip(t, id, 2.0, 1, resultOf(access.ResultWon), at)
		}
		for range losses {
			f.addTip(t, id, 2.0, 1, resultOf(access.ResultLost), at)
		}
		return id
	}

	t.Run("ranks by roi and applies the limit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		strong := seed(t, f, "Strong", 5, 1) // ROI (10-6)/6
		middle := seed(t, f, "Middle", 4, 2) // ROI (8-6)/6
		weak := seed(t, f, "Weak", 1, 5)     // negative ROI

		board, err := f.svc.TopPerformers(ctx, stats.PeriodAll, 2)
		require.NoError(t, err)
		require.Len(t, board, 2)
		assert.Equal(t, strong, board[0].TipsterID)
		assert.Equal(t, middle, board[1].TipsterID)
		_ = weak

		assert.Equal(t, "Strong", board[0].DisplayName)
		assert.Equal(t, 6, board[0].SettledTips)
	})

	t.Run("requires five settled tips", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		seed(t, f, "Newcomer", 3, 1)

		board, err := f.svc.TopPerformers(ctx, stats.PeriodAll, 3)
		require.NoError(t, err)
		assert.Empty(t, board)
	})

	t.Run("zero limit defaults to three", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		for i := range 5 {
			seed(t, f, string(rune('A'+i)), 5, i)
		}

		board, err := f.svc.TopPerformers(ctx, stats.PeriodAll, 0)
		require.NoError(t, err)
		assert.Len(t, board, 3)
	})

	t.Run("rejects an out-of-range limit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.TopPerformers(ctx, stats.PeriodAll, 11)
		assert.ErrorIs(t, err, stats.ErrValidation)
	})
}
