package repository

import (
	"context"

	"github.com/ErlanBelekov/accounts/internal/domain"
)

type ImageRepository interface {
	// Replace deletes the user's current image and stores img atomically.
	Replace(ctx context.Context, img *domain.UserImage) (*domain.UserImage, error)
	DeleteByUser(ctx context.Context, userID string) error
	FindByID(ctx context.Context, id string) (*domain.UserImage, error)
}

type ConnectionRepository interface {
	Find(ctx context.Context, providerName, providerID string) (*domain.Connection, error)
	Create(ctx context.Context, c *domain.Connection) error
}
