package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/email"
	"github.com/ErlanBelekov/accounts/internal/repository"
)

// MaxPhotoSize is the largest accepted profile photo.
const MaxPhotoSize = 3 << 20

var ErrPhotoTooLarge = errors.New("photo exceeds size limit")

type ProfileUsecase struct {
	users    repository.UserRepository
	images   repository.ImageRepository
	verifier *Verifier
	email    email.Sender
	logger   *slog.Logger
}

func NewProfileUsecase(
	users repository.UserRepository,
	images repository.ImageRepository,
	verifier *Verifier,
	emailSender email.Sender,
	logger *slog.Logger,
) *ProfileUsecase {
	return &ProfileUsecase{
		users:    users,
		images:   images,
		verifier: verifier,
		email:    emailSender,
		logger:   logger.With("component", "profile"),
	}
}

func (u *ProfileUsecase) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return u.users.FindByID(ctx, userID)
}

// ReplacePhoto swaps the user's image for blob in a single transaction.
func (u *ProfileUsecase) ReplacePhoto(ctx context.Context, userID, contentType string, blob []byte) (*domain.UserImage, error) {
	if len(blob) > MaxPhotoSize {
		return nil, ErrPhotoTooLarge
	}
	img, err := u.images.Replace(ctx, &domain.UserImage{
		UserID:      userID,
		ContentType: contentType,
		Blob:        blob,
	})
	if err != nil {
		return nil, fmt.Errorf("replace photo: %w", err)
	}
	return img, nil
}

// DeletePhoto is a no-op for a user without an image.
func (u *ProfileUsecase) DeletePhoto(ctx context.Context, userID string) error {
	return u.images.DeleteByUser(ctx, userID)
}

func (u *ProfileUsecase) Image(ctx context.Context, id string) (*domain.UserImage, error) {
	return u.images.FindByID(ctx, id)
}

// RequestEmailChange mails a change-email code to the new address. The
// code is bound to the user; the address itself travels in the
// requesting browser's verification cookie.
func (u *ProfileUsecase) RequestEmailChange(ctx context.Context, userID, newEmail string) (*Prepared, error) {
	newEmail = normalize(newEmail)
	if _, err := u.users.FindByEmail(ctx, newEmail); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	p, err := u.verifier.Prepare(ctx, PrepareInput{Type: domain.VerificationChangeEmail, Target: userID})
	if err != nil {
		return nil, err
	}
	body := email.CodeBody("Use the code below to confirm your new email address.", p.Code, p.Link)
	if err = u.email.Send(ctx, newEmail, "Email Change Verification", body); err != nil {
		return nil, fmt.Errorf("send change-email email: %w", err)
	}
	return p, nil
}

// ChangeEmail applies a verified address change and notifies the old
// address. The notice is best effort.
func (u *ProfileUsecase) ChangeEmail(ctx context.Context, userID, newEmail string) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err = u.users.UpdateEmail(ctx, userID, normalize(newEmail)); err != nil {
		return err
	}
	body := fmt.Sprintf("<p>Your email address has been changed to %s.</p>", html.EscapeString(normalize(newEmail)))
	if err = u.email.Send(ctx, user.Email, "Your email has been changed", body); err != nil {
		u.logger.WarnContext(ctx, "email change notice failed", "error", err)
	}
	return nil
}
