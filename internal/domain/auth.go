package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrPasswordNotSet     = errors.New("user has no password")
	ErrPasswordAlreadySet = errors.New("user already has a password")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrConnectionExists   = errors.New("connection already linked")
	ErrUnauthorized       = errors.New("unauthorized")
)

// SessionTTL is how long a freshly created session stays valid.
const SessionTTL = 30 * 24 * time.Hour

type User struct {
	ID        string
	Email     string
	Username  string
	Name      string
	ImageID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Session struct {
	ID             string
	UserID         string
	ExpirationDate time.Time
	CreatedAt      time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpirationDate.After(now)
}

type UserImage struct {
	ID          string
	UserID      string
	ContentType string
	Blob        []byte
	AltText     *string
	CreatedAt   time.Time
}

// Connection links a user to an identity at an external provider.
type Connection struct {
	ID           string
	ProviderName string
	ProviderID   string
	UserID       string
	CreatedAt    time.Time
}

// NewUser carries everything needed to create an account in one unit:
// the user row, its credential or provider link, an optional image and
// the first session.
type NewUser struct {
	Email        string
	Username     string
	Name         string
	PasswordHash []byte
	Connection   *Connection
	Image        *UserImage
	ExpiresAt    time.Time
}
