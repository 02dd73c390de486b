package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
)

type VerificationRepository interface {
	// Upsert replaces any existing record for (v.Type, v.Target).
	Upsert(ctx context.Context, v *domain.Verification) (*domain.Verification, error)
	Find(ctx context.Context, t domain.VerificationType, target string) (*domain.Verification, error)
	Delete(ctx context.Context, t domain.VerificationType, target string) error
	// Promote moves the record of type from to type to for the same target
	// and clears its expiry, replacing any record already of type to.
	Promote(ctx context.Context, from, to domain.VerificationType, target string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
