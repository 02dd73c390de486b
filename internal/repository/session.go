package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, userID string, expiresAt time.Time) (*domain.Session, error)
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
