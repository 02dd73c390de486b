package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ErlanBelekov/accounts/internal/cookie"
	"github.com/gin-gonic/gin"
)

// Keys of the verification cookie. Each is written by exactly one flow.
const (
	keyOnboardingEmail       = "onboardingEmail"
	keyResetPasswordUsername = "resetPasswordUsername"
	keyProviderID            = "providerId"
	keyPrefilledProfile      = "prefilledProfile"
	keyNewEmailAddress       = "newEmailAddress"
	keyUnverifiedSessionID   = "unverifiedSessionId"
	keyRemember              = "remember"
	keyRedirectTo            = "redirectTo"
	keyOAuthState            = "oauthState"
	keyOAuthVerifier         = "oauthVerifier"
)

const (
	themeCookie = "theme"
	themeMaxAge = 365 * 24 * time.Hour
)

// Cookies bundles the stores a request may touch. Each store is committed
// explicitly; nothing is flushed implicitly.
type Cookies struct {
	Verification *cookie.Store
	Session      *cookie.Store
	Toast        *cookie.Store
	Secure       bool
}

// NewCookies builds the stores used by every handler from one codec.
func NewCookies(codec *cookie.Codec, secure bool) *Cookies {
	return &Cookies{
		Verification: cookie.NewStore("verification", codec, cookie.Options{
			MaxAge: 10 * time.Minute, Secure: secure, HTTPOnly: true,
		}),
		Session: cookie.NewStore("session", codec, cookie.Options{
			Secure: secure, HTTPOnly: true,
		}),
		Toast: cookie.NewStore("toast", codec, cookie.Options{
			MaxAge: time.Minute, Secure: secure, HTTPOnly: true,
		}),
		Secure: secure,
	}
}

func setCookies(c *gin.Context, cookies ...*http.Cookie) {
	for _, ck := range cookies {
		if ck != nil {
			http.SetCookie(c.Writer, ck)
		}
	}
}

// safeRedirect only honours same-site paths; anything else falls back to "/".
func safeRedirect(to string) string {
	if to == "" || !strings.HasPrefix(to, "/") || strings.HasPrefix(to, "//") || strings.HasPrefix(to, "/\\") {
		return "/"
	}
	u, err := url.Parse(to)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return to
}

func withRedirect(path, redirectTo string) string {
	if redirectTo == "" {
		return path
	}
	q := url.Values{}
	q.Set("redirectTo", redirectTo)
	return path + "?" + q.Encode()
}
