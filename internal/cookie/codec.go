// Package cookie keeps small key/value sessions entirely client side, in a
// cookie signed with HS256. Nothing is persisted on the server; every change
// has to be flushed by the caller with the cookie returned from Commit or
// Destroy.
package cookie

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MaxSize is the largest encoded value browsers reliably accept.
const MaxSize = 4096

var (
	ErrNoSecrets = errors.New("cookie: at least one secret is required")
	ErrTooLarge  = errors.New("cookie: encoded session exceeds size limit")
)

type claims struct {
	Values map[string]string `json:"v"`
	jwt.RegisteredClaims
}

// Codec signs with the first secret and accepts any of them, so secrets can
// be rotated by prepending a new one.
type Codec struct {
	secrets [][]byte
}

func NewCodec(secrets ...string) (*Codec, error) {
	c := &Codec{}
	for _, s := range secrets {
		if s != "" {
			c.secrets = append(c.secrets, []byte(s))
		}
	}
	if len(c.secrets) == 0 {
		return nil, ErrNoSecrets
	}
	return c, nil
}

// Encode signs values; a zero expires produces a token without exp.
func (c *Codec) Encode(values map[string]string, expires time.Time) (string, error) {
	cl := claims{Values: values}
	if !expires.IsZero() {
		cl.ExpiresAt = jwt.NewNumericDate(expires)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secrets[0])
	if err != nil {
		return "", fmt.Errorf("sign cookie: %w", err)
	}
	if len(signed) > MaxSize {
		return "", ErrTooLarge
	}
	return signed, nil
}

// Decode verifies raw against every secret and returns its values.
func (c *Codec) Decode(raw string) (map[string]string, error) {
	var lastErr error
	for _, secret := range c.secrets {
		var cl claims
		_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err == nil {
			if cl.Values == nil {
				cl.Values = map[string]string{}
			}
			return cl.Values, nil
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, fmt.Errorf("decode cookie: %w", lastErr)
}
