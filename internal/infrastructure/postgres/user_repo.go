package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `u.id, u.email, u.username, COALESCE(u.name, ''), i.id, u.created_at, u.updated_at`

const userFrom = `FROM users u LEFT JOIN user_images i ON i.user_id = u.id`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.username = $1`, username)
	return scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` `+userFrom+` WHERE u.email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` `+userFrom+` WHERE u.username = $1 OR u.email = $1 LIMIT 1`,
		usernameOrEmail,
	)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, in domain.NewUser) (*domain.User, *domain.Session, error) {
	var (
		user    domain.User
		session domain.Session
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (email, username, name) VALUES ($1, $2, NULLIF($3, ''))
			RETURNING id, email, username, COALESCE(name, ''), created_at, updated_at`,
			in.Email, in.Username, in.Name,
		).Scan(&user.ID, &user.Email, &user.Username, &user.Name, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return mapUserConstraint(err, "insert user")
		}

		if in.PasswordHash != nil {
			if _, err := tx.Exec(ctx,
				`INSERT INTO passwords (user_id, hash) VALUES ($1, $2)`,
				user.ID, string(in.PasswordHash),
			); err != nil {
				return fmt.Errorf("insert password: %w", err)
			}
		}

		if in.Connection != nil {
			if _, err := tx.Exec(ctx,
				`INSERT INTO connections (provider_name, provider_id, user_id) VALUES ($1, $2, $3)`,
				in.Connection.ProviderName, in.Connection.ProviderID, user.ID,
			); err != nil {
				return mapConnectionConstraint(err, "insert connection")
			}
		}

		if in.Image != nil {
			imageID := uuid.NewString()
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_images (id, user_id, content_type, blob, alt_text) VALUES ($1, $2, $3, $4, $5)`,
				imageID, user.ID, in.Image.ContentType, in.Image.Blob, in.Image.AltText,
			); err != nil {
				return fmt.Errorf("insert image: %w", err)
			}
			user.ImageID = &imageID
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO sessions (id, user_id, expiration_date) VALUES ($1, $2, $3)
			RETURNING id, user_id, expiration_date, created_at`,
			uuid.NewString(), user.ID, in.ExpiresAt,
		).Scan(&session.ID, &session.UserID, &session.ExpirationDate, &session.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, &session, nil
}

func (r *UserRepository) UpdateEmail(ctx context.Context, userID, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`,
		userID, email,
	)
	if err != nil {
		return mapUserConstraint(err, "update email")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// mapUserConstraint turns unique violations on users into the domain error
// for the offending column.
func mapUserConstraint(err error, op string) error {
	switch uniqueConstraint(err) {
	case usersEmailKey:
		return domain.ErrEmailTaken
	case usersUsernameKey:
		return domain.ErrUsernameTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Name, &u.ImageID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
