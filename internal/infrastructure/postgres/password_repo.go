package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PasswordRepository struct {
	pool *pgxpool.Pool
}

func NewPasswordRepository(pool *pgxpool.Pool) *PasswordRepository {
	return &PasswordRepository{pool: pool}
}

func (r *PasswordRepository) Hash(ctx context.Context, userID string) ([]byte, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT hash FROM passwords WHERE user_id = $1`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPasswordNotSet
		}
		return nil, fmt.Errorf("select password: %w", err)
	}
	return []byte(hash), nil
}

func (r *PasswordRepository) Create(ctx context.Context, userID string, hash []byte) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO passwords (user_id, hash) VALUES ($1, $2)`, userID, string(hash))
	if err != nil {
		if uniqueConstraint(err) == passwordsPkey {
			return domain.ErrPasswordAlreadySet
		}
		return fmt.Errorf("insert password: %w", err)
	}
	return nil
}

// Update replaces the hash, creating the row when the user had none.
func (r *PasswordRepository) Update(ctx context.Context, userID string, hash []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO passwords (user_id, hash) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET hash = EXCLUDED.hash`,
		userID, string(hash),
	)
	if err != nil {
		return fmt.Errorf("upsert password: %w", err)
	}
	return nil
}
