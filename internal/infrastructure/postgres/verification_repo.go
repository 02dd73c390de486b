package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const verificationColumns = `id, type, target, secret, algorithm, digits, period, char_set, expires_at, created_at`

type VerificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

func (r *VerificationRepository) Upsert(ctx context.Context, v *domain.Verification) (*domain.Verification, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO verifications (type, target, secret, algorithm, digits, period, char_set, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (target, type) DO UPDATE
		SET secret     = EXCLUDED.secret,
		    algorithm  = EXCLUDED.algorithm,
		    digits     = EXCLUDED.digits,
		    period     = EXCLUDED.period,
		    char_set   = EXCLUDED.char_set,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
		RETURNING `+verificationColumns,
		v.Type, v.Target, v.Secret, v.Algorithm, v.Digits, int(v.Period/time.Second), v.CharSet, v.ExpiresAt,
	)
	saved, err := scanVerification(row)
	if err != nil {
		return nil, fmt.Errorf("upsert verification: %w", err)
	}
	return saved, nil
}

func (r *VerificationRepository) Find(ctx context.Context, t domain.VerificationType, target string) (*domain.Verification, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE type = $1 AND target = $2`,
		t, target,
	)
	return scanVerification(row)
}

func (r *VerificationRepository) Delete(ctx context.Context, t domain.VerificationType, target string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM verifications WHERE type = $1 AND target = $2`, t, target)
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	return nil
}

func (r *VerificationRepository) Promote(ctx context.Context, from, to domain.VerificationType, target string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM verifications WHERE type = $1 AND target = $2`, to, target,
		); err != nil {
			return fmt.Errorf("clear %s verification: %w", to, err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE verifications SET type = $1, expires_at = NULL WHERE type = $2 AND target = $3`,
			to, from, target,
		)
		if err != nil {
			return fmt.Errorf("promote verification: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVerificationNotFound
		}
		return nil
	})
}

func (r *VerificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM verifications WHERE expires_at IS NOT NULL AND expires_at <= $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired verifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanVerification(row pgx.Row) (*domain.Verification, error) {
	var (
		v      domain.Verification
		period int
	)
	err := row.Scan(&v.ID, &v.Type, &v.Target, &v.Secret, &v.Algorithm, &v.Digits,
		&period, &v.CharSet, &v.ExpiresAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVerificationNotFound
		}
		return nil, fmt.Errorf("scan verification: %w", err)
	}
	v.Period = time.Duration(period) * time.Second
	return &v, nil
}
