package tipster

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tipvault/tipvault/pkg/pg"
)

// PgStore is the Postgres-backed tipster store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const tipsterColumns = `id, user_id, display_name, bio, created_at, updated_at`

func (s *PgStore) Create(ctx context.Context, t *Tipster) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tipsters (`+tipsterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.DisplayName, t.Bio, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return errors.Join(ErrExists, err)
		}
		return err
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Tipster, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tipsterColumns+` FROM tipsters WHERE id = $1`, id)
	return scanTipster(row)
}

func (s *PgStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*Tipster, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tipsterColumns+` FROM tipsters WHERE user_id = $1`, userID)
	return scanTipster(row)
}

func (s *PgStore) List(ctx context.Context) ([]Tipster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tipsterColumns+` FROM tipsters ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tipster
	for rows.Next() {
		t, err := scanTipster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTipster(row pgx.Row) (*Tipster, error) {
	var t Tipster
	err := row.Scan(&t.ID, &t.UserID, &t.DisplayName, &t.Bio, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
