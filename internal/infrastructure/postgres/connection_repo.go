package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConnectionRepository struct {
	pool *pgxpool.Pool
}

func NewConnectionRepository(pool *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{pool: pool}
}

func (r *ConnectionRepository) Find(ctx context.Context, providerName, providerID string) (*domain.Connection, error) {
	var c domain.Connection
	err := r.pool.QueryRow(ctx,
		`SELECT id, provider_name, provider_id, user_id, created_at
		FROM connections WHERE provider_name = $1 AND provider_id = $2`,
		providerName, providerID,
	).Scan(&c.ID, &c.ProviderName, &c.ProviderID, &c.UserID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("select connection: %w", err)
	}
	return &c, nil
}

func (r *ConnectionRepository) Create(ctx context.Context, c *domain.Connection) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO connections (provider_name, provider_id, user_id) VALUES ($1, $2, $3)`,
		c.ProviderName, c.ProviderID, c.UserID,
	)
	if err != nil {
		return mapConnectionConstraint(err, "insert connection")
	}
	return nil
}

func mapConnectionConstraint(err error, op string) error {
	if uniqueConstraint(err) == connectionsProviderKey {
		return domain.ErrConnectionExists
	}
	return fmt.Errorf("%s: %w", op, err)
}
