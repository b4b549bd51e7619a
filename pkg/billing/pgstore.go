package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgPayeeStore is the Postgres-backed PayeeStore.
type PgPayeeStore struct {
	pool *pgxpool.Pool
}

func NewPgPayeeStore(pool *pgxpool.Pool) *PgPayeeStore {
	return &PgPayeeStore{pool: pool}
}

const payeeColumns = `tipster_id, provider_account_id, charges_enabled, payouts_enabled, onboarding_complete, created_at, updated_at`

func (s *PgPayeeStore) Get(ctx context.Context, tipsterID uuid.UUID) (*PayeeAccount, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+payeeColumns+` FROM payee_accounts WHERE tipster_id = $1`, tipsterID)
	return scanPayee(row)
}

func (s *PgPayeeStore) GetByProviderAccountID(ctx context.Context, providerAccountID string) (*PayeeAccount, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+payeeColumns+` FROM payee_accounts WHERE provider_account_id = $1`, providerAccountID)
	return scanPayee(row)
}

func (s *PgPayeeStore) Save(ctx context.Context, a *PayeeAccount) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payee_accounts (`+payeeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tipster_id) DO UPDATE SET
			provider_account_id = EXCLUDED.provider_account_id,
			charges_enabled     = EXCLUDED.charges_enabled,
			payouts_enabled     = EXCLUDED.payouts_enabled,
			onboarding_complete = EXCLUDED.onboarding_complete,
			updated_at          = EXCLUDED.updated_at`,
		a.TipsterID, a.ProviderAccountID, a.ChargesEnabled, a.PayoutsEnabled,
		a.OnboardingComplete, a.CreatedAt, a.UpdatedAt)
	return err
}

func scanPayee(row pgx.Row) (*PayeeAccount, error) {
	var a PayeeAccount
	err := row.Scan(&a.TipsterID, &a.ProviderAccountID, &a.ChargesEnabled,
		&a.PayoutsEnabled, &a.OnboardingComplete, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}
