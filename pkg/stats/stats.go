// Package stats computes tipster performance figures from settled tips:
// win rate, return on investment, streaks, and a cross-tipster top
// performers board.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tipvault/tipvault/pkg/access"
	"github.com/tipvault/tipvault/pkg/offer"
	"github.com/tipvault/tipvault/pkg/tipster"
)

var ErrValidation = errors.New("stats: invalid input")

// Period restricts a computation to tips created within a window.
type Period string

const (
	PeriodAll  Period = "all"
	Period7d   Period = "7d"
	Period30d  Period = "30d"
	Period90d  Period = "90d"
	PeriodYear Period = "year" // since January 1st of the current year
)

// ParsePeriod validates a period string. Empty falls back to the given
// default.
func ParsePeriod(s string, fallback Period) (Period, error) {
	if s == "" {
		return fallback, nil
	}
	switch p := Period(s); p {
	case PeriodAll, Period7d, Period30d, Period90d, PeriodYear:
		return p, nil
	}
	return "", errors.Join(ErrValidation, fmt.Errorf("unknown period %q", s))
}

// cutoff returns the earliest creation time included in the period. The
// zero time means no restriction.
func (p Period) cutoff(now time.Time) time.Time {
	switch p {
	case Period7d:
		return now.Add(-7 * 24 * time.Hour)
	case Period30d:
		return now.Add(-30 * 24 * time.Hour)
	case Period90d:
		return now.Add(-90 * 24 * time.Hour)
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

// TipsterStats is one tipster's performance over a period. Stakes are
// units, so profit and yield are in units too.
type TipsterStats struct {
	TotalTips   int `json:"total_tips"`
	SettledTips int `json:"settled_tips"`
	PendingTips int `json:"pending_tips"`
	WonTips     int `json:"won_tips"`
	LostTips    int `json:"lost_tips"`
	VoidTips    int `json:"void_tips"`

	// WinRate is won over settled-minus-void, as a percentage.
	WinRate float64 `json:"win_rate"`
	// ROI is profit over total settled stake, as a percentage.
	ROI         float64 `json:"roi"`
	Profit      float64 `json:"profit"`
	AverageOdds float64 `json:"average_odds"`
	// Yield is profit per published tip.
	Yield float64 `json:"yield"`

	LongestWinStreak  int `json:"longest_win_streak"`
	LongestLoseStreak int `json:"longest_lose_streak"`
}

// TopPerformer is one row of the leaderboard.
type TopPerformer struct {
	TipsterID   uuid.UUID `json:"tipster_id"`
	DisplayName string    `json:"display_name"`
	ROI         float64   `json:"roi"`
	WinRate     float64   `json:"win_rate"`
	TotalTips   int       `json:"total_tips"`
	SettledTips int       `json:"settled_tips"`
}

// TipSource lists a tipster's tips from a cutoff onward. Implemented by
// the tip stores.
type TipSource interface {
	ListByTipsterSince(ctx context.Context, tipsterID uuid.UUID, since time.Time) ([]access.Tip, error)
}

// TipsterSource resolves tipster profiles. Implemented by the tipster
// stores.
type TipsterSource interface {
	Get(ctx context.Context, id uuid.UUID) (*tipster.Tipster, error)
	List(ctx context.Context) ([]tipster.Tipster, error)
}

// minSettledForBoard keeps tipsters with too little history off the
// leaderboard, where one lucky tip would dominate the ROI ranking.
const minSettledForBoard = 5

// Service computes statistics on demand.
type Service struct {
	tips     TipSource
	tipsters TipsterSource
	log      *slog.Logger
}

// NewService wires the stats service. Panics on nil dependencies to fail
// fast during initialization.
func NewService(tips TipSource, tipsters TipsterSource, log *slog.Logger) *Service {
	if tips == nil {
		panic("stats: TipSource is required")
	}
	if tipsters == nil {
		panic("stats: TipsterSource is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{tips: tips, tipsters: tipsters, log: log}
}

// TipsterStats computes one tipster's figures over the period.
func (s *Service) TipsterStats(ctx context.Context, tipsterID uuid.UUID, period Period) (*TipsterStats, error) {
	if _, err := s.tipsters.Get(ctx, tipsterID); err != nil {
		if errors.Is(err, tipster.ErrNotFound) {
			return nil, offer.ErrTipsterNotFound
		}
		return nil, err
	}

	tips, err := s.tips.ListByTipsterSince(ctx, tipsterID, period.cutoff(time.Now().UTC()))
	if err != nil {
		return nil, err
	}
	st := compute(tips)
	return &st, nil
}

// TopPerformers ranks tipsters by ROI over the period. Tipsters with
// fewer than five settled tips in the window are excluded. Limit 0 means
// the default of three; anything above ten is rejected.
func (s *Service) TopPerformers(ctx context.Context, period Period, limit int) ([]TopPerformer, error) {
	if limit == 0 {
		limit = 3
	}
	if limit < 1 || limit > 10 {
		return nil, errors.Join(ErrValidation, fmt.Errorf("limit must be between 1 and 10, got %d", limit))
	}

	tipsters, err := s.tipsters.List(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := period.cutoff(time.Now().UTC())

	var board []TopPerformer
	for _, t := range tipsters {
		tips, err := s.tips.ListByTipsterSince(ctx, t.ID, cutoff)
		if err != nil {
			return nil, err
		}
		st := compute(tips)
		if st.SettledTips < minSettledForBoard {
			continue
		}
		board = append(board, TopPerformer{
			TipsterID:   t.ID,
			DisplayName: t.DisplayName,
			ROI:         st.ROI,
			WinRate:     st.WinRate,
			TotalTips:   st.TotalTips,
			SettledTips: st.SettledTips,
		})
	}

	slices.SortFunc(board, func(a, b TopPerformer) int {
		switch {
		case b.ROI > a.ROI:
			return 1
		case b.ROI < a.ROI:
			return -1
		}
		return 0
	})
	if len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

// compute derives the full figure set from one tipster's tips.
func compute(tips []access.Tip) TipsterStats {
	var st TipsterStats
	st.TotalTips = len(tips)

	var totalOdds float64
	var totalStake, totalReturns float64
	for _, tip := range tips {
		totalOdds += tip.Odds
		if tip.Result == nil {
			st.PendingTips++
			continue
		}
		st.SettledTips++

		stake := float64(tip.Stake)
		if stake == 0 {
			stake = 1
		}
		totalStake += stake

		switch *tip.Result {
		case access.ResultWon:
			st.WonTips++
			totalReturns += stake * tip.Odds
		case access.ResultLost:
			st.LostTips++
		case access.ResultVoid:
			st.VoidTips++
			totalReturns += stake
		}
	}

	if decisive := st.SettledTips - st.VoidTips; decisive > 0 {
		st.WinRate = round2(float64(st.WonTips) / float64(decisive) * 100)
	}
	profit := totalReturns - totalStake
	st.Profit = round2(profit)
	if totalStake > 0 {
		st.ROI = round2(profit / totalStake * 100)
	}
	if st.TotalTips > 0 {
		st.AverageOdds = round2(totalOdds / float64(st.TotalTips))
		st.Yield = round2(profit / float64(st.TotalTips))
	}
	st.LongestWinStreak, st.LongestLoseStreak = streaks(tips)
	return st
}

// streaks walks decisive results oldest first and tracks the longest
// unbroken runs. Void results neither extend nor break a streak.
func streaks(tips []access.Tip) (win, lose int) {
	decisive := make([]access.Tip, 0, len(tips))
	for _, tip := range tips {
		if tip.Result != nil && *tip.Result != access.ResultVoid {
			decisive = append(decisive, tip)
		}
	}
	slices.SortFunc(decisive, func(a, b access.Tip) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	var curWin, curLose int
	for _, tip := range decisive {
		if *tip.Result == access.ResultWon {
			curWin++
			curLose = 0
			win = max(win, curWin)
		} else {
			curLose++
			curWin = 0
			lose = max(lose, curLose)
		}
	}
	return win, lose
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
