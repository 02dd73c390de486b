package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/accounts/internal/cookie"
	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/transport/http/middleware"
	"github.com/ErlanBelekov/accounts/internal/usecase"
	"github.com/gin-gonic/gin"
)

// sessionUsecaser is the part of AuthUsecase every session-opening flow needs.
type sessionUsecaser interface {
	TwoFactorEnabled(ctx context.Context, userID string) (bool, error)
	Logout(ctx context.Context, sessionID string) error
}

type sessionStarter struct {
	cookies  *Cookies
	sessions sessionUsecaser
	logger   *slog.Logger
}

// sessionCookie points the session cookie at s. With remember the cookie
// carries the session's expiry, otherwise it lives as long as the browser.
func (k *Cookies) sessionCookie(c *gin.Context, s *domain.Session, remember bool) (*http.Cookie, error) {
	sess := k.Session.Get(c.Request)
	sess.Set(middleware.SessionIDKey, s.ID)
	if remember {
		return k.Session.Commit(sess, cookie.WithExpires(s.ExpirationDate))
	}
	return k.Session.Commit(sess)
}

// begin finishes a successful sign-in. Users with two-factor enabled get
// the new session parked in the verification cookie and are sent to enter
// a code; everyone else gets the session cookie. done are cookies to set
// only when the sign-in completes here (e.g. clearing flow state).
func (s *sessionStarter) begin(c *gin.Context, session *domain.Session, remember bool, redirectTo string, done ...*http.Cookie) {
	ctx := c.Request.Context()

	if prev, ok := s.cookies.Session.Get(c.Request).Get(middleware.SessionIDKey); ok && prev != session.ID {
		if err := s.sessions.Logout(ctx, prev); err != nil {
			s.logger.WarnContext(ctx, "drop superseded session", "error", err)
		}
	}

	twoFactor, err := s.sessions.TwoFactorEnabled(ctx, session.UserID)
	if err != nil {
		internalError(c, s.logger, "check two factor", err)
		return
	}
	if twoFactor {
		v := s.cookies.Verification.Get(c.Request)
		v.Set(keyUnverifiedSessionID, session.ID)
		v.Set(keyRemember, strconv.FormatBool(remember))
		v.Set(keyRedirectTo, redirectTo)
		ck, err := s.cookies.Verification.Commit(v)
		if err != nil {
			internalError(c, s.logger, "commit verification cookie", err)
			return
		}
		redirect(c, usecase.VerifyPath(domain.VerificationTwoFactor, session.UserID, "", redirectTo), ck)
		return
	}

	ck, err := s.cookies.sessionCookie(c, session, remember)
	if err != nil {
		internalError(c, s.logger, "commit session cookie", err)
		return
	}
	redirect(c, safeRedirect(redirectTo), append(done, ck)...)
}
