// Package totp derives time-stepped one-time codes (RFC 4226/6238) over an
// arbitrary character set, so the same routine serves six-digit
// authenticator codes and the alphanumeric codes mailed to users.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/url"
	"strings"
	"time"
)

type Algorithm string

const (
	SHA1   Algorithm = "SHA-1"
	SHA256 Algorithm = "SHA-256"
	SHA512 Algorithm = "SHA-512"
)

const (
	// DigitCharSet yields classic zero-padded numeric codes.
	DigitCharSet = "0123456789"
	// CodeCharSet leaves out characters that are easy to misread (0, O, I).
	CodeCharSet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"
)

var (
	ErrInvalidSecret  = errors.New("totp: secret is not valid base32")
	ErrInvalidConfig  = errors.New("totp: invalid config")
	secretEncoding    = base32.StdEncoding.WithPadding(base32.NoPadding)
	defaultSecretSize = 20
)

type Config struct {
	Secret    string
	Algorithm Algorithm
	Digits    int
	Period    time.Duration
	CharSet   string
}

// Verification is the profile used for codes delivered by email.
func Verification(secret string, period time.Duration) Config {
	return Config{Secret: secret, Algorithm: SHA256, Digits: 6, Period: period, CharSet: CodeCharSet}
}

// Authenticator is the profile understood by authenticator apps.
func Authenticator(secret string) Config {
	return Config{Secret: secret, Algorithm: SHA1, Digits: 6, Period: 30 * time.Second, CharSet: DigitCharSet}
}

// NewSecret returns a random base32 secret without padding.
func NewSecret() (string, error) {
	raw := make([]byte, defaultSecretSize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return secretEncoding.EncodeToString(raw), nil
}

// Generate returns the code for the time step containing now.
func (c Config) Generate(now time.Time) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}
	return c.hotp(key, c.counter(now)), nil
}

// Verify reports whether code matches any step in [now-window, now+window].
func (c Config) Verify(code string, now time.Time, window int) bool {
	key, err := c.key()
	if err != nil {
		return false
	}
	if c.CharSet != "" && strings.ToUpper(c.CharSet) == c.CharSet {
		code = strings.ToUpper(code)
	}

	step := int64(c.counter(now))
	for i := -int64(window); i <= int64(window); i++ {
		if step+i < 0 {
			continue
		}
		want := c.hotp(key, uint64(step+i))
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// KeyURI builds the otpauth:// URI authenticator apps scan as a QR code.
func (c Config) KeyURI(issuer, account string) string {
	q := url.Values{}
	q.Set("secret", c.Secret)
	q.Set("issuer", issuer)
	q.Set("algorithm", strings.ReplaceAll(string(c.algorithm()), "-", ""))
	q.Set("digits", fmt.Sprint(c.Digits))
	q.Set("period", fmt.Sprint(int64(c.Period/time.Second)))
	label := url.PathEscape(issuer + ":" + account)
	return "otpauth://totp/" + label + "?" + q.Encode()
}

func (c Config) key() ([]byte, error) {
	if c.Digits <= 0 || c.Period < time.Second || len(c.charSet()) < 2 {
		return nil, ErrInvalidConfig
	}
	key, err := secretEncoding.DecodeString(strings.ToUpper(c.Secret))
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

func (c Config) counter(now time.Time) uint64 {
	return uint64(now.Unix() / int64(c.Period/time.Second))
}

func (c Config) algorithm() Algorithm {
	if c.Algorithm == "" {
		return SHA1
	}
	return c.Algorithm
}

func (c Config) charSet() string {
	if c.CharSet == "" {
		return DigitCharSet
	}
	return c.CharSet
}

func (c Config) newHash() func() hash.Hash {
	switch c.algorithm() {
	case SHA256:
		return sha256.New
	case SHA512:
		return sha512.New
	default:
		return sha1.New
	}
}

func (c Config) hotp(key []byte, counter uint64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, counter)

	mac := hmac.New(c.newHash(), key)
	mac.Write(buf)
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0xf
	bin := uint64(sum[offset]&0x7f)<<24 |
		uint64(sum[offset+1])<<16 |
		uint64(sum[offset+2])<<8 |
		uint64(sum[offset+3])

	chars := c.charSet()
	base := uint64(len(chars))
	out := make([]byte, c.Digits)
	for i := c.Digits - 1; i >= 0; i-- {
		out[i] = chars[bin%base]
		bin /= base
	}
	return string(out)
}
