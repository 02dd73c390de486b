package domain

import (
	"errors"
	"time"
)

var ErrVerificationNotFound = errors.New("verification not found")

type VerificationType string

const (
	VerificationOnboarding      VerificationType = "onboarding"
	VerificationResetPassword   VerificationType = "reset-password"
	VerificationChangeEmail     VerificationType = "change-email"
	VerificationTwoFactorVerify VerificationType = "2fa-verify"
	VerificationTwoFactor       VerificationType = "2fa"
)

// VerificationTypes lists every type the verify endpoint accepts.
var VerificationTypes = []VerificationType{
	VerificationOnboarding,
	VerificationResetPassword,
	VerificationChangeEmail,
	VerificationTwoFactorVerify,
	VerificationTwoFactor,
}

func ParseVerificationType(s string) (VerificationType, bool) {
	for _, t := range VerificationTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Persistent types survive a successful check and carry no expiry.
func (t VerificationType) Persistent() bool {
	return t == VerificationTwoFactor
}

// Verification binds a one-time code secret to a (type, target) pair.
// At most one row exists per pair; a new request overwrites the old one.
type Verification struct {
	ID        string
	Type      VerificationType
	Target    string
	Secret    string
	Algorithm string
	Digits    int
	Period    time.Duration
	CharSet   string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Live reports whether the record may still be used to validate codes.
func (v *Verification) Live(now time.Time) bool {
	return v.ExpiresAt == nil || v.ExpiresAt.After(now)
}
