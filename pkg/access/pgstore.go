package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgTipStore is the Postgres-backed TipStore.
type PgTipStore struct {
	pool *pgxpool.Pool
}

func NewPgTipStore(pool *pgxpool.Pool) *PgTipStore {
	return &PgTipStore{pool: pool}
}

const tipColumns = `id, tipster_id, title, sport, premium, prediction, explanation,
	odds, stake, result, event_at, created_at, updated_at`

func (s *PgTipStore) Create(ctx context.Context, tip *Tip) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tips (`+tipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tip.ID, tip.TipsterID, tip.Title, tip.Sport, tip.Premium, tip.Prediction,
		tip.Explanation, tip.Odds, tip.Stake, tip.Result, tip.EventAt, tip.CreatedAt, tip.UpdatedAt)
	return err
}

func (s *PgTipStore) Get(ctx context.Context, id uuid.UUID) (*Tip, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tipColumns+` FROM tips WHERE id = $1`, id)
	return scanTip(row)
}

func (s *PgTipStore) ListByTipster(ctx context.Context, tipsterID uuid.UUID, limit int) ([]Tip, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+tipColumns+` FROM tips
		WHERE tipster_id = $1 ORDER BY created_at DESC LIMIT $2`, tipsterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tip
	for rows.Next() {
		tip, err := scanTip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tip)
	}
	return out, rows.Err()
}

func (s *PgTipStore) CountByTipster(ctx context.Context, tipsterID uuid.UUID) (free, premium int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE NOT premium), count(*) FILTER (WHERE premium)
		FROM tips WHERE tipster_id = $1`, tipsterID).Scan(&free, &premium)
	return free, premium, err
}

// SetResult records the outcome on an unsettled tip.
func (s *PgTipStore) SetResult(ctx context.Context, id uuid.UUID, result TipResult, settledAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tips SET result = $2, updated_at = $3
		WHERE id = $1 AND result IS NULL`, id, result, settledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrAlreadySettled
	}
	return nil
}

// ListByTipsterSince returns the tipster's tips created at or after the
// cutoff, oldest first. A zero cutoff returns everything.
func (s *PgTipStore) ListByTipsterSince(ctx context.Context, tipsterID uuid.UUID, since time.Time) ([]Tip, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tipColumns+` FROM tips
		WHERE tipster_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at ASC`, tipsterID, nullableTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tip
	for rows.Next() {
		tip, err := scanTip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tip)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanTip(row pgx.Row) (*Tip, error) {
	var tip Tip
	err := row.Scan(&tip.ID, &tip.TipsterID, &tip.Title, &tip.Sport, &tip.Premium,
		&tip.Prediction, &tip.Explanation, &tip.Odds, &tip.Stake, &tip.Result,
		&tip.EventAt, &tip.CreatedAt, &tip.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tip, nil
}
