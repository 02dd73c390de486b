package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ErlanBelekov/accounts/internal/cookie"
	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/reqctx"
	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey holds the authenticated user's id on the gin context.
	UserIDKey = "userID"
	// SessionIDKey is the session cookie entry pointing at the session row.
	SessionIDKey = "sessionId"
)

// sessionResolver is the subset of AuthUsecase the middleware needs.
type sessionResolver interface {
	UserIDFromSession(ctx context.Context, sessionID string) (string, error)
}

// Authenticate resolves the session cookie into a user id. A cookie that
// points at a missing or expired session is cleared and the request
// continues anonymously.
func Authenticate(store *cookie.Store, sessions sessionResolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := store.Get(c.Request)
		sessionID, ok := sess.Get(SessionIDKey)
		if !ok || sessionID == "" {
			c.Next()
			return
		}

		userID, err := sessions.UserIDFromSession(c.Request.Context(), sessionID)
		if err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) {
				logger.ErrorContext(c.Request.Context(), "resolve session", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
				return
			}
			http.SetCookie(c.Writer, store.Destroy(sess))
			c.Next()
			return
		}

		c.Set(UserIDKey, userID)
		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// RequireUser sends anonymous visitors to the login page, remembering
// where they were going.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserIDKey) != "" {
			c.Next()
			return
		}
		q := url.Values{}
		q.Set("redirectTo", c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, "/login?"+q.Encode())
		c.Abort()
	}
}

// RequireAnonymous sends signed-in users home.
func RequireAnonymous() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserIDKey) == "" {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, "/")
		c.Abort()
	}
}
