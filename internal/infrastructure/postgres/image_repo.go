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

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

// Replace removes any image the user has and inserts img in one transaction,
// so a user never ends up with two images or none half way through.
func (r *ImageRepository) Replace(ctx context.Context, img *domain.UserImage) (*domain.UserImage, error) {
	saved := *img
	saved.ID = uuid.NewString()

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_images WHERE user_id = $1`, img.UserID); err != nil {
			return fmt.Errorf("delete image: %w", err)
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO user_images (id, user_id, content_type, blob, alt_text)
			VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
			saved.ID, saved.UserID, saved.ContentType, saved.Blob, saved.AltText,
		).Scan(&saved.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, img.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ImageRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM user_images WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id string) (*domain.UserImage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrImageNotFound
	}
	var img domain.UserImage
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, content_type, blob, alt_text, created_at FROM user_images WHERE id = $1`, id,
	).Scan(&img.ID, &img.UserID, &img.ContentType, &img.Blob, &img.AltText, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("select image: %w", err)
	}
	return &img, nil
}
