package offer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres-backed offer store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const offerColumns = `id, tipster_id, name, description, price, currency, duration,
	sports, trial_days, active, provider_product_id, provider_price_id, created_at, updated_at`

func (s *PgStore) Create(ctx context.Context, o *Offer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO offers (`+offerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.TipsterID, o.Name, o.Description, o.Price, o.Currency, o.Duration,
		sportStrings(o.Sports), o.TrialDays, o.Active, o.ProviderProductID, o.ProviderPriceID,
		o.CreatedAt, o.UpdatedAt)
	return err
}

func (s *PgStore) Update(ctx context.Context, o *Offer) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE offers SET
			name = $2, description = $3, price = $4, currency = $5, duration = $6,
			sports = $7, trial_days = $8, active = $9, updated_at = $10
		WHERE id = $1`,
		o.ID, o.Name, o.Description, o.Price, o.Currency, o.Duration,
		sportStrings(o.Sports), o.TrialDays, o.Active, o.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Offer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	return scanOffer(row)
}

func (s *PgStore) ListByTipster(ctx context.Context, tipsterID uuid.UUID, includeInactive bool) ([]Offer, error) {
	q := `SELECT ` + offerColumns + ` FROM offers WHERE tipster_id = $1`
	if !includeInactive {
		q += ` AND active`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, tipsterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (s *PgStore) SetProviderRefs(ctx context.Context, id uuid.UUID, productID, priceID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE offers SET provider_product_id = $2, provider_price_id = $3, updated_at = now()
		WHERE id = $1`, id, productID, priceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) SubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM subscriptions WHERE offer_id = $1`, offerID).Scan(&n)
	return n, err
}

func (s *PgStore) ActiveSubscriptionCount(ctx context.Context, offerID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM subscriptions WHERE offer_id = $1 AND status IN ('active', 'trialing')`,
		offerID).Scan(&n)
	return n, err
}

func (s *PgStore) ActiveSubscriberCountByTipster(ctx context.Context, tipsterID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(DISTINCT sub.user_id)
		FROM subscriptions sub
		JOIN offers o ON o.id = sub.offer_id
		WHERE o.tipster_id = $1 AND sub.status = 'active'`, tipsterID).Scan(&n)
	return n, err
}

func scanOffer(row pgx.Row) (*Offer, error) {
	var (
		o      Offer
		sports []string
	)
	err := row.Scan(&o.ID, &o.TipsterID, &o.Name, &o.Description, &o.Price, &o.Currency,
		&o.Duration, &sports, &o.TrialDays, &o.Active, &o.ProviderProductID,
		&o.ProviderPriceID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Sports = make([]Sport, len(sports))
	for i, s := range sports {
		o.Sports[i] = Sport(s)
	}
	return &o, nil
}

func sportStrings(sports []Sport) []string {
	out := make([]string, len(sports))
	for i, s := range sports {
		out[i] = string(s)
	}
	return out
}
