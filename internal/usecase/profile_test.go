package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/usecase"
)

func newProfile(users *fakeUserRepo, images *fakeImageRepo, sender *fakeEmailSender, verifs *memVerificationRepo) *usecase.ProfileUsecase {
	if users == nil {
		users = &fakeUserRepo{}
	}
	if images == nil {
		images = &fakeImageRepo{}
	}
	if sender == nil {
		sender = noopSender
	}
	if verifs == nil {
		verifs = newMemVerificationRepo()
	}
	v := usecase.NewVerifier(verifs, testBaseURL, "Accounts", discardLogger)
	return usecase.NewProfileUsecase(users, images, v, sender, discardLogger)
}

func TestReplacePhoto_TooLarge(t *testing.T) {
	uc := newProfile(nil, &fakeImageRepo{
		replace: func(context.Context, *domain.UserImage) (*domain.UserImage, error) {
			t.Error("oversized photo must not be stored")
			return nil, nil
		},
	}, nil, nil)
	_, err := uc.ReplacePhoto(context.Background(), "user-1", "image/png", make([]byte, usecase.MaxPhotoSize+1))
	if !errors.Is(err, usecase.ErrPhotoTooLarge) {
		t.Errorf("want ErrPhotoTooLarge, got %v", err)
	}
}

func TestReplacePhoto_Stores(t *testing.T) {
	var got *domain.UserImage
	uc := newProfile(nil, &fakeImageRepo{
		replace: func(_ context.Context, img *domain.UserImage) (*domain.UserImage, error) {
			got = img
			saved := *img
			saved.ID = "img-1"
			return &saved, nil
		},
	}, nil, nil)
	img, err := uc.ReplacePhoto(context.Background(), "user-1", "image/png", []byte("png"))
	if err != nil {
		t.Fatalf("ReplacePhoto: %v", err)
	}
	if img.ID != "img-1" || got.UserID != "user-1" || got.ContentType != "image/png" {
		t.Errorf("unexpected image: %+v", got)
	}
}

func TestDeletePhoto_NoImageIsNoop(t *testing.T) {
	calls := 0
	uc := newProfile(nil, &fakeImageRepo{
		deleteByUser: func(context.Context, string) error {
			calls++
			return nil
		},
	}, nil, nil)
	if err := uc.DeletePhoto(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeletePhoto: %v", err)
	}
	if calls != 1 {
		t.Errorf("deleteByUser calls = %d", calls)
	}
}

func TestRequestEmailChange_Taken(t *testing.T) {
	uc := newProfile(&fakeUserRepo{
		findByEmail: func(context.Context, string) (*domain.User, error) { return testUser, nil },
	}, nil, nil, nil)
	_, err := uc.RequestEmailChange(context.Background(), "user-2", "alice@example.com")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("want ErrEmailTaken, got %v", err)
	}
}

func TestRequestEmailChange_CodeBoundToUser(t *testing.T) {
	verifs := newMemVerificationRepo()
	var to string
	uc := newProfile(&fakeUserRepo{
		findByEmail: func(context.Context, string) (*domain.User, error) { return nil, domain.ErrUserNotFound },
	}, nil, &fakeEmailSender{
		send: func(_ context.Context, gotTo, _, _ string) error {
			to = gotTo
			return nil
		},
	}, verifs)

	if _, err := uc.RequestEmailChange(context.Background(), "user-1", "New@Example.com"); err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	if to != "new@example.com" {
		t.Errorf("mailed to %q", to)
	}
	if _, err := verifs.Find(context.Background(), domain.VerificationChangeEmail, "user-1"); err != nil {
		t.Errorf("change-email record not stored for the user: %v", err)
	}
}

func TestChangeEmail_NoticeFailureIsNotFatal(t *testing.T) {
	var updated string
	uc := newProfile(&fakeUserRepo{
		findByID: func(context.Context, string) (*domain.User, error) { return testUser, nil },
		updateEmail: func(_ context.Context, _, email string) error {
			updated = email
			return nil
		},
	}, nil, &fakeEmailSender{
		send: func(context.Context, string, string, string) error { return errors.New("smtp down") },
	}, nil)

	if err := uc.ChangeEmail(context.Background(), "user-1", "New@Example.com"); err != nil {
		t.Fatalf("ChangeEmail: %v", err)
	}
	if updated != "new@example.com" {
		t.Errorf("updated to %q", updated)
	}
}

func TestChangeEmail_TakenPropagates(t *testing.T) {
	uc := newProfile(&fakeUserRepo{
		findByID:    func(context.Context, string) (*domain.User, error) { return testUser, nil },
		updateEmail: func(context.Context, string, string) error { return domain.ErrEmailTaken },
	}, nil, nil, nil)
	if err := uc.ChangeEmail(context.Background(), "user-1", "taken@example.com"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("want ErrEmailTaken, got %v", err)
	}
}
