// Package oauth signs users in through third-party identity providers.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Identity is what a provider tells us about the user after consent.
type Identity struct {
	ID       string
	Email    string
	Username string
	Name     string
	ImageURL string
}

// Provider is one configured identity provider.
type Provider interface {
	Name() string
	// AuthCodeURL is the consent page the browser is sent to. verifier is
	// the PKCE code verifier kept by the caller until the callback.
	AuthCodeURL(state, verifier, redirectURI string) string
	// Identify exchanges the callback code and returns the user's identity.
	Identify(ctx context.Context, code, verifier, redirectURI string) (*Identity, error)
}

type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewState returns a random value tying a callback to the browser that
// started the flow.
func NewState() (string, error) {
	raw := make([]byte, 24)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// usernameFrom derives a username suggestion from an email local part.
func usernameFrom(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
