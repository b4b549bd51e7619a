package follow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tipvault/tipvault/pkg/pg"
)

// PgStore is the Postgres-backed follow store. The unique constraint on
// (user_id, tipster_id) backs the one-edge-per-pair invariant.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Create(ctx context.Context, f *Follow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO follows (id, user_id, tipster_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		f.ID, f.UserID, f.TipsterID, f.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return errors.Join(ErrAlreadyFollowing, err)
		}
		return err
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, userID, tipsterID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM follows WHERE user_id = $1 AND tipster_id = $2`,
		userID, tipsterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFollowing
	}
	return nil
}

func (s *PgStore) Exists(ctx context.Context, userID, tipsterID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND tipster_id = $2)`,
		userID, tipsterID).Scan(&exists)
	return exists, err
}

func (s *PgStore) TipsterIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tipster_id FROM follows
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PgStore) CountByTipster(ctx context.Context, tipsterID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM follows WHERE tipster_id = $1`, tipsterID).Scan(&count)
	return count, err
}
