package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/metrics"
	"github.com/ErlanBelekov/accounts/internal/repository"
	"github.com/ErlanBelekov/accounts/internal/totp"
)

const (
	// DefaultCodePeriod is the lifetime of an emailed code.
	DefaultCodePeriod = 10 * time.Minute
	// skewWindow is the number of adjacent time steps accepted either side
	// of the current one.
	skewWindow = 1
	// enrollmentTTL bounds how long a 2fa-verify record may wait for the
	// first authenticator code.
	enrollmentTTL = 10 * time.Minute
)

type PrepareInput struct {
	Type   domain.VerificationType
	Target string
	// Period defaults to DefaultCodePeriod.
	Period time.Duration
	// RedirectTo, when set, is carried on the verify link so the user lands
	// back where the flow started.
	RedirectTo string
}

type Prepared struct {
	Code string
	// Link is the absolute URL mailed to the user; it submits the code.
	Link string
	// RedirectTo is the verify page for the same (type, target) without the
	// code, for the browser that requested it.
	RedirectTo string
	Record     *domain.Verification
}

// Enrollment is a pending authenticator setup.
type Enrollment struct {
	KeyURI string
	Record *domain.Verification
}

type Verifier struct {
	repo    repository.VerificationRepository
	baseURL string
	issuer  string
	logger  *slog.Logger
	now     func() time.Time
}

func NewVerifier(repo repository.VerificationRepository, baseURL, issuer string, logger *slog.Logger) *Verifier {
	return &Verifier{
		repo:    repo,
		baseURL: baseURL,
		issuer:  issuer,
		logger:  logger.With("component", "verifier"),
		now:     time.Now,
	}
}

// SetClock replaces the time source; tests use it to step across expiry
// and window boundaries.
func (v *Verifier) SetClock(now func() time.Time) { v.now = now }

// Prepare issues a fresh code for (Type, Target), replacing any record the
// pair already had so older codes stop working at once.
func (v *Verifier) Prepare(ctx context.Context, in PrepareInput) (*Prepared, error) {
	period := in.Period
	if period <= 0 {
		period = DefaultCodePeriod
	}
	secret, err := totp.NewSecret()
	if err != nil {
		return nil, err
	}
	cfg := totp.Verification(secret, period)
	now := v.now()

	code, err := cfg.Generate(now)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	rec := recordFromConfig(in.Type, in.Target, cfg)
	if !in.Type.Persistent() {
		exp := now.Add(period * skewWindow)
		rec.ExpiresAt = &exp
	}
	saved, err := v.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("store verification: %w", err)
	}
	metrics.VerificationsPreparedTotal.WithLabelValues(string(in.Type)).Inc()

	redirect := VerifyPath(in.Type, in.Target, "", in.RedirectTo)
	return &Prepared{
		Code:       code,
		Link:       v.baseURL + VerifyPath(in.Type, in.Target, code, in.RedirectTo),
		RedirectTo: redirect,
		Record:     saved,
	}, nil
}

// Enroll starts authenticator setup for a user: a 2fa-verify record with an
// authenticator-app profile whose first valid code promotes it to 2fa.
func (v *Verifier) Enroll(ctx context.Context, userID, account string) (*Enrollment, error) {
	secret, err := totp.NewSecret()
	if err != nil {
		return nil, err
	}
	cfg := totp.Authenticator(secret)
	rec := recordFromConfig(domain.VerificationTwoFactorVerify, userID, cfg)
	exp := v.now().Add(enrollmentTTL)
	rec.ExpiresAt = &exp

	saved, err := v.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("store enrollment: %w", err)
	}
	metrics.VerificationsPreparedTotal.WithLabelValues(string(domain.VerificationTwoFactorVerify)).Inc()
	return &Enrollment{KeyURI: cfg.KeyURI(v.issuer, account), Record: saved}, nil
}

// PendingEnrollment returns the key URI of an enrollment still awaiting its
// first code, or domain.ErrVerificationNotFound.
func (v *Verifier) PendingEnrollment(ctx context.Context, userID, account string) (string, error) {
	rec, err := v.repo.Find(ctx, domain.VerificationTwoFactorVerify, userID)
	if err != nil {
		return "", err
	}
	if !rec.Live(v.now()) {
		return "", domain.ErrVerificationNotFound
	}
	return configFromRecord(rec).KeyURI(v.issuer, account), nil
}

// IsCodeValid fails closed: a missing or expired record is simply false.
// A storage error other than not-found is returned.
func (v *Verifier) IsCodeValid(ctx context.Context, t domain.VerificationType, target, code string) (bool, error) {
	ok, result, err := v.check(ctx, t, target, code)
	metrics.VerificationsCheckedTotal.WithLabelValues(string(t), result).Inc()
	if err != nil {
		return false, err
	}
	v.logger.DebugContext(ctx, "code checked", "type", t, "result", result)
	return ok, nil
}

func (v *Verifier) check(ctx context.Context, t domain.VerificationType, target, code string) (bool, string, error) {
	rec, err := v.repo.Find(ctx, t, target)
	if errors.Is(err, domain.ErrVerificationNotFound) {
		return false, "missing", nil
	}
	if err != nil {
		return false, "error", fmt.Errorf("find verification: %w", err)
	}
	now := v.now()
	if !rec.Live(now) {
		return false, "expired", nil
	}
	if !configFromRecord(rec).Verify(code, now, skewWindow) {
		return false, "mismatch", nil
	}
	return true, "valid", nil
}

// Consume deletes a used record unless its type is persistent.
func (v *Verifier) Consume(ctx context.Context, t domain.VerificationType, target string) error {
	if t.Persistent() {
		return nil
	}
	if err := v.repo.Delete(ctx, t, target); err != nil {
		return fmt.Errorf("consume verification: %w", err)
	}
	return nil
}

// Promote turns a confirmed 2fa-verify record into the user's persistent
// 2fa secret.
func (v *Verifier) Promote(ctx context.Context, userID string) error {
	return v.repo.Promote(ctx, domain.VerificationTwoFactorVerify, domain.VerificationTwoFactor, userID)
}

// TwoFactorEnabled reports whether the user has a persistent 2fa record.
func (v *Verifier) TwoFactorEnabled(ctx context.Context, userID string) (bool, error) {
	_, err := v.repo.Find(ctx, domain.VerificationTwoFactor, userID)
	if errors.Is(err, domain.ErrVerificationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find 2fa: %w", err)
	}
	return true, nil
}

// DisableTwoFactor removes the user's 2fa record; a user without one is a no-op.
func (v *Verifier) DisableTwoFactor(ctx context.Context, userID string) error {
	return v.repo.Delete(ctx, domain.VerificationTwoFactor, userID)
}

// VerifyPath builds /verify?type=&target=[&code=][&redirectTo=].
func VerifyPath(t domain.VerificationType, target, code, redirectTo string) string {
	q := url.Values{}
	q.Set("type", string(t))
	q.Set("target", target)
	if code != "" {
		q.Set("code", code)
	}
	if redirectTo != "" {
		q.Set("redirectTo", redirectTo)
	}
	return "/verify?" + q.Encode()
}

func recordFromConfig(t domain.VerificationType, target string, cfg totp.Config) *domain.Verification {
	return &domain.Verification{
		Type:      t,
		Target:    target,
		Secret:    cfg.Secret,
		Algorithm: string(cfg.Algorithm),
		Digits:    cfg.Digits,
		Period:    cfg.Period,
		CharSet:   cfg.CharSet,
	}
}

func configFromRecord(rec *domain.Verification) totp.Config {
	return totp.Config{
		Secret:    rec.Secret,
		Algorithm: totp.Algorithm(rec.Algorithm),
		Digits:    rec.Digits,
		Period:    rec.Period,
		CharSet:   rec.CharSet,
	}
}
