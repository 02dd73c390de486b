package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type PasswordUsecase struct {
	passwords repository.PasswordRepository
}

func NewPasswordUsecase(passwords repository.PasswordRepository) *PasswordUsecase {
	return &PasswordUsecase{passwords: passwords}
}

func (u *PasswordUsecase) HasPassword(ctx context.Context, userID string) (bool, error) {
	_, err := u.passwords.Hash(ctx, userID)
	if errors.Is(err, domain.ErrPasswordNotSet) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find password: %w", err)
	}
	return true, nil
}

// Change replaces the password after re-checking the current one. A wrong
// current password is domain.ErrInvalidCredentials.
func (u *PasswordUsecase) Change(ctx context.Context, userID, current, next string) error {
	hash, err := u.passwords.Hash(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(next), hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err = u.passwords.Update(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Create sets the first password of an account created through a provider.
func (u *PasswordUsecase) Create(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return u.passwords.Create(ctx, userID, hash)
}
