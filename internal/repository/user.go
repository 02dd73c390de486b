package repository

import (
	"context"

	"github.com/ErlanBelekov/accounts/internal/domain"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByLogin matches either the username or the email column.
	FindByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	// Create inserts the user together with its credential, connection,
	// image and first session in a single transaction.
	Create(ctx context.Context, in domain.NewUser) (*domain.User, *domain.Session, error)
	UpdateEmail(ctx context.Context, userID, email string) error
}

type PasswordRepository interface {
	// Hash returns domain.ErrPasswordNotSet when the user has no password.
	Hash(ctx context.Context, userID string) ([]byte, error)
	// Create fails with domain.ErrPasswordAlreadySet if one exists.
	Create(ctx context.Context, userID string, hash []byte) error
	Update(ctx context.Context, userID string, hash []byte) error
}
