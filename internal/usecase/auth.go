package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/email"
	"github.com/ErlanBelekov/accounts/internal/metrics"
	"github.com/ErlanBelekov/accounts/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// hashCost is a variable so tests can drop to bcrypt.MinCost.
var hashCost = bcrypt.DefaultCost

// ImageFetcher downloads a remote avatar for accounts created through a
// provider.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.UserImage, error)
}

type SignupInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

type ProviderSignupInput struct {
	Email        string
	Username     string
	Name         string
	ProviderName string
	ProviderID   string
	ImageURL     string
}

type AuthUsecase struct {
	users       repository.UserRepository
	passwords   repository.PasswordRepository
	sessions    repository.SessionRepository
	connections repository.ConnectionRepository
	verifier    *Verifier
	email       email.Sender
	images      ImageFetcher
	logger      *slog.Logger
	now         func() time.Time
}

func NewAuthUsecase(
	users repository.UserRepository,
	passwords repository.PasswordRepository,
	sessions repository.SessionRepository,
	connections repository.ConnectionRepository,
	verifier *Verifier,
	emailSender email.Sender,
	images ImageFetcher,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:       users,
		passwords:   passwords,
		sessions:    sessions,
		connections: connections,
		verifier:    verifier,
		email:       emailSender,
		images:      images,
		logger:      logger.With("component", "auth"),
		now:         time.Now,
	}
}

// Login checks the password and opens a session. Unknown users and wrong
// passwords both return domain.ErrInvalidCredentials.
func (u *AuthUsecase) Login(ctx context.Context, usernameOrEmail, password string) (*domain.Session, error) {
	user, err := u.users.FindByLogin(ctx, normalize(usernameOrEmail))
	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := u.passwords.Hash(ctx, user.ID)
	if errors.Is(err, domain.ErrPasswordNotSet) {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find password: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return u.StartSession(ctx, user.ID)
}

// StartSession opens a new session for an already authenticated user.
func (u *AuthUsecase) StartSession(ctx context.Context, userID string) (*domain.Session, error) {
	s, err := u.sessions.Create(ctx, userID, u.now().Add(domain.SessionTTL))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Session returns a live session; expired or missing sessions are
// domain.ErrSessionNotFound.
func (u *AuthUsecase) Session(ctx context.Context, id string) (*domain.Session, error) {
	s, err := u.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(u.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (u *AuthUsecase) UserIDFromSession(ctx context.Context, id string) (string, error) {
	s, err := u.Session(ctx, id)
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

// Logout deletes the session record; an unknown id is not an error.
func (u *AuthUsecase) Logout(ctx context.Context, id string) error {
	if err := u.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// TwoFactorEnabled decides whether a fresh login must be parked until an
// authenticator code is supplied.
func (u *AuthUsecase) TwoFactorEnabled(ctx context.Context, userID string) (bool, error) {
	return u.verifier.TwoFactorEnabled(ctx, userID)
}

// StartSignup mails an onboarding code to an address that has no account.
func (u *AuthUsecase) StartSignup(ctx context.Context, emailAddr, redirectTo string) (*Prepared, error) {
	emailAddr = normalize(emailAddr)
	if _, err := u.users.FindByEmail(ctx, emailAddr); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	p, err := u.verifier.Prepare(ctx, PrepareInput{
		Type:       domain.VerificationOnboarding,
		Target:     emailAddr,
		RedirectTo: redirectTo,
	})
	if err != nil {
		return nil, err
	}
	body := email.CodeBody("Welcome! Use the code below to finish creating your account.", p.Code, p.Link)
	if err = u.email.Send(ctx, emailAddr, "Welcome!", body); err != nil {
		return nil, fmt.Errorf("send onboarding email: %w", err)
	}
	return p, nil
}

// UsernameTaken is an advisory pre-check; Signup still relies on the
// unique constraint.
func (u *AuthUsecase) UsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := u.users.FindByUsername(ctx, normalize(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	return true, nil
}

// Signup creates a password account and its first session in one unit.
// A lost race on username or email surfaces as domain.ErrUsernameTaken or
// domain.ErrEmailTaken from the unique constraint.
func (u *AuthUsecase) Signup(ctx context.Context, in SignupInput) (*domain.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	_, s, err := u.users.Create(ctx, domain.NewUser{
		Email:        normalize(in.Email),
		Username:     normalize(in.Username),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		ExpiresAt:    u.now().Add(domain.SessionTTL),
	})
	if err != nil {
		return nil, err
	}
	metrics.SignupsTotal.WithLabelValues("password").Inc()
	return s, nil
}

// SignupWithConnection creates an account linked to a provider identity.
// A failed avatar download is logged and the account is created without one.
func (u *AuthUsecase) SignupWithConnection(ctx context.Context, in ProviderSignupInput) (*domain.Session, error) {
	nu := domain.NewUser{
		Email:      normalize(in.Email),
		Username:   normalize(in.Username),
		Name:       strings.TrimSpace(in.Name),
		Connection: &domain.Connection{ProviderName: in.ProviderName, ProviderID: in.ProviderID},
		ExpiresAt:  u.now().Add(domain.SessionTTL),
	}
	if in.ImageURL != "" && u.images != nil {
		img, err := u.images.Fetch(ctx, in.ImageURL)
		if err != nil {
			u.logger.WarnContext(ctx, "avatar download failed", "provider", in.ProviderName, "error", err)
		} else {
			nu.Image = img
		}
	}
	_, s, err := u.users.Create(ctx, nu)
	if err != nil {
		return nil, err
	}
	metrics.SignupsTotal.WithLabelValues(in.ProviderName).Inc()
	return s, nil
}

// LoginWithConnection opens a session for the user linked to the provider
// identity, or returns domain.ErrConnectionNotFound.
func (u *AuthUsecase) LoginWithConnection(ctx context.Context, providerName, providerID string) (*domain.Session, error) {
	c, err := u.connections.Find(ctx, providerName, providerID)
	if err != nil {
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues(providerName).Inc()
	return u.StartSession(ctx, c.UserID)
}

// ConnectionOwner returns the user id linked to the provider identity.
func (u *AuthUsecase) ConnectionOwner(ctx context.Context, providerName, providerID string) (string, error) {
	c, err := u.connections.Find(ctx, providerName, providerID)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}

func (u *AuthUsecase) Link(ctx context.Context, userID, providerName, providerID string) error {
	return u.connections.Create(ctx, &domain.Connection{
		ProviderName: providerName,
		ProviderID:   providerID,
		UserID:       userID,
	})
}

// FindByEmail is used by provider callbacks to link an identity to an
// existing account with the same address.
func (u *AuthUsecase) FindByEmail(ctx context.Context, emailAddr string) (*domain.User, error) {
	return u.users.FindByEmail(ctx, normalize(emailAddr))
}

// RequestPasswordReset mails a reset code when usernameOrEmail names a
// user and returns the normalized target the code is stored under. For
// anyone else nothing is stored or sent and no error is returned, so the
// caller responds identically either way.
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, usernameOrEmail string) (string, error) {
	target := normalize(usernameOrEmail)
	user, err := u.users.FindByLogin(ctx, target)
	if errors.Is(err, domain.ErrUserNotFound) {
		u.logger.DebugContext(ctx, "password reset for unknown user")
		return target, nil
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}

	p, err := u.verifier.Prepare(ctx, PrepareInput{Type: domain.VerificationResetPassword, Target: target})
	if err != nil {
		return "", err
	}
	body := email.CodeBody("Use the code below to reset your password.", p.Code, p.Link)
	if err = u.email.Send(ctx, user.Email, "Password Reset", body); err != nil {
		return "", fmt.Errorf("send reset email: %w", err)
	}
	return target, nil
}

// ResetPasswordTarget resolves the target of a verified reset-password code
// to the account's username.
func (u *AuthUsecase) ResetPasswordTarget(ctx context.Context, target string) (string, error) {
	user, err := u.users.FindByLogin(ctx, normalize(target))
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// ResetPassword sets a new password for username, creating the credential
// if the account had none.
func (u *AuthUsecase) ResetPassword(ctx context.Context, username, password string) error {
	user, err := u.users.FindByUsername(ctx, normalize(username))
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err = u.passwords.Update(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
