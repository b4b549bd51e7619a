package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tipvault/tipvault/pkg/pg"
)

// PgLedger is the Postgres-backed Ledger. A partial unique index on
// (user_id, offer_id) over non-terminal rows enforces the one-live-row
// invariant at the database level.
type PgLedger struct {
	pool *pgxpool.Pool
}

func NewPgLedger(pool *pgxpool.Pool) *PgLedger {
	return &PgLedger{pool: pool}
}

const subColumns = `id, user_id, offer_id, tipster_id, status, provider_sub_id, one_time,
	fee_percent, current_period_end, trial_end, cancel_at_period_end, created_at, updated_at`

func (l *PgLedger) Create(ctx context.Context, sub *Subscription) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sub.ID, sub.UserID, sub.OfferID, sub.TipsterID, sub.Status, sub.ProviderSubID,
		sub.OneTime, sub.FeePercent, sub.CurrentPeriodEnd, sub.TrialEnd,
		sub.CancelAtPeriodEnd, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return errors.Join(ErrAlreadySubscribed, err)
		}
		return err
	}
	return nil
}

func (l *PgLedger) Update(ctx context.Context, sub *Subscription) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE subscriptions SET
			status = $2, provider_sub_id = $3, fee_percent = $4, current_period_end = $5,
			trial_end = $6, cancel_at_period_end = $7, updated_at = $8
		WHERE id = $1`,
		sub.ID, sub.Status, sub.ProviderSubID, sub.FeePercent, sub.CurrentPeriodEnd,
		sub.TrialEnd, sub.CancelAtPeriodEnd, sub.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *PgLedger) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+subColumns+` FROM subscriptions WHERE id = $1`, id)
	return scanSubscription(row)
}

func (l *PgLedger) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE provider_sub_id = $1`, providerSubID)
	return scanSubscription(row)
}

func (l *PgLedger) FindNonTerminal(ctx context.Context, userID, offerID uuid.UUID) (*Subscription, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT `+subColumns+` FROM subscriptions
		WHERE user_id = $1 AND offer_id = $2 AND status NOT IN ('cancelled', 'expired')`,
		userID, offerID)
	return scanSubscription(row)
}

func (l *PgLedger) ListByUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+subColumns+` FROM subscriptions
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func (l *PgLedger) DeleteTerminal(ctx context.Context, userID, offerID uuid.UUID) error {
	_, err := l.pool.Exec(ctx, `
		DELETE FROM subscriptions
		WHERE user_id = $1 AND offer_id = $2 AND status IN ('cancelled', 'expired')`,
		userID, offerID)
	return err
}

func (l *PgLedger) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := l.pool.Exec(ctx, `
		UPDATE subscriptions SET status = 'expired', updated_at = $1
		WHERE status IN ('trialing', 'active', 'past_due')
		  AND provider_sub_id = ''
		  AND current_period_end IS NOT NULL
		  AND current_period_end < $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// EntitledByUserAndTipster returns the user's entitled (active or
// trialing) rows for one tipster; the access engine resolves sport scopes
// against them.
func (l *PgLedger) EntitledByUserAndTipster(ctx context.Context, userID, tipsterID uuid.UUID) ([]Subscription, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+subColumns+` FROM subscriptions
		WHERE user_id = $1 AND tipster_id = $2 AND status IN ('trialing', 'active')`,
		userID, tipsterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.OfferID, &sub.TipsterID, &sub.Status,
		&sub.ProviderSubID, &sub.OneTime, &sub.FeePercent, &sub.CurrentPeriodEnd,
		&sub.TrialEnd, &sub.CancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}
