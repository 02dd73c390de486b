package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/form"
	"github.com/ErlanBelekov/accounts/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type verifier interface {
	IsCodeValid(ctx context.Context, t domain.VerificationType, target, code string) (bool, error)
	Consume(ctx context.Context, t domain.VerificationType, target string) error
	Promote(ctx context.Context, userID string) error
}

type verifyAuth interface {
	ResetPasswordTarget(ctx context.Context, target string) (string, error)
	Session(ctx context.Context, id string) (*domain.Session, error)
}

type verifyProfile interface {
	ChangeEmail(ctx context.Context, userID, newEmail string) error
}

// directive is what a completed flow asks the verify endpoint to send:
// either a redirect with cookies, or a failed submission.
type directive struct {
	location string
	cookies  []*http.Cookie
	toast    *Toast
	failed   *form.Submission
}

// completer finishes the flow a verification type belongs to, once its
// code has been accepted.
type completer interface {
	Complete(c *gin.Context, target string, sub *form.Submission) (directive, error)
}

type completeFunc func(c *gin.Context, target string, sub *form.Submission) (directive, error)

func (f completeFunc) Complete(c *gin.Context, target string, sub *form.Submission) (directive, error) {
	return f(c, target, sub)
}

type flow struct {
	completer
	// keep leaves the record for the completer instead of consuming it first.
	keep bool
}

type VerifyHandler struct {
	verifier verifier
	auth     verifyAuth
	profile  verifyProfile
	cookies  *Cookies
	flows    map[domain.VerificationType]flow
	logger   *slog.Logger
}

func NewVerifyHandler(v verifier, auth verifyAuth, profile verifyProfile, cookies *Cookies, logger *slog.Logger) *VerifyHandler {
	h := &VerifyHandler{
		verifier: v,
		auth:     auth,
		profile:  profile,
		cookies:  cookies,
		logger:   logger.With("component", "verify_handler"),
	}
	h.flows = map[domain.VerificationType]flow{
		domain.VerificationOnboarding:      {completer: completeFunc(h.completeOnboarding)},
		domain.VerificationResetPassword:   {completer: completeFunc(h.completeResetPassword)},
		domain.VerificationChangeEmail:     {completer: completeFunc(h.completeChangeEmail)},
		domain.VerificationTwoFactorVerify: {completer: completeFunc(h.completeTwoFactorSetup), keep: true},
		domain.VerificationTwoFactor:       {completer: completeFunc(h.completeTwoFactorLogin)},
	}
	return h
}

type verifyForm struct {
	Code       string `form:"code"       binding:"required,len=6"`
	Type       string `form:"type"       binding:"required"`
	Target     string `form:"target"     binding:"required"`
	RedirectTo string `form:"redirectTo"`
}

// GET /verify
// Without a code this is the idle form; with one (the emailed link) it is
// validated like a POST.
func (h *VerifyHandler) Show(c *gin.Context) {
	if c.Query("code") == "" {
		reply(c, http.StatusOK, form.Idle(map[string]string{
			"type":       c.Query("type"),
			"target":     c.Query("target"),
			"redirectTo": c.Query("redirectTo"),
		}))
		return
	}
	h.Verify(c)
}

// POST /verify
func (h *VerifyHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	var req verifyForm
	sub := form.Bind(c, &req)
	if sub.Failed() {
		// Any problem touching the code reads the same, whatever the cause.
		if _, bad := sub.Error["code"]; bad {
			sub.Error["code"] = []string{msgInvalidCode}
		}
		fail(c, sub)
		return
	}

	t, ok := domain.ParseVerificationType(req.Type)
	fl, registered := h.flows[t]
	if !ok || !registered {
		sub.FieldError("type", "Invalid type")
		fail(c, sub)
		return
	}

	valid, err := h.verifier.IsCodeValid(ctx, t, req.Target, req.Code)
	if err != nil {
		internalError(c, h.logger, "check code", err)
		return
	}
	if !valid {
		sub.FieldError("code", msgInvalidCode)
		fail(c, sub)
		return
	}

	if !fl.keep {
		if err = h.verifier.Consume(ctx, t, req.Target); err != nil {
			internalError(c, h.logger, "consume verification", err)
			return
		}
	}

	d, err := fl.Complete(c, req.Target, sub)
	if err != nil {
		internalError(c, h.logger, "complete "+string(t), err)
		return
	}
	if d.failed != nil {
		fail(c, d.failed)
		return
	}
	if d.toast != nil {
		d.cookies = append(d.cookies, h.cookies.toastCookie(c, h.logger, *d.toast))
	}
	redirect(c, d.location, d.cookies...)
}

func (h *VerifyHandler) completeOnboarding(c *gin.Context, target string, _ *form.Submission) (directive, error) {
	v := h.cookies.Verification.Get(c.Request)
	v.Set(keyOnboardingEmail, target)
	ck, err := h.cookies.Verification.Commit(v)
	if err != nil {
		return directive{}, err
	}
	return directive{location: "/onboarding", cookies: []*http.Cookie{ck}}, nil
}

func (h *VerifyHandler) completeResetPassword(c *gin.Context, target string, sub *form.Submission) (directive, error) {
	username, err := h.auth.ResetPasswordTarget(c.Request.Context(), target)
	if errors.Is(err, domain.ErrUserNotFound) {
		sub.FieldError("code", msgInvalidCode)
		return directive{failed: sub}, nil
	}
	if err != nil {
		return directive{}, err
	}

	v := h.cookies.Verification.Get(c.Request)
	v.Set(keyResetPasswordUsername, username)
	ck, err := h.cookies.Verification.Commit(v)
	if err != nil {
		return directive{}, err
	}
	return directive{location: "/reset-password", cookies: []*http.Cookie{ck}}, nil
}

func (h *VerifyHandler) completeChangeEmail(c *gin.Context, target string, sub *form.Submission) (directive, error) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" || userID != target {
		return directive{location: withRedirect("/login", c.Request.URL.RequestURI())}, nil
	}

	v := h.cookies.Verification.Get(c.Request)
	newEmail, ok := v.Get(keyNewEmailAddress)
	if !ok || newEmail == "" {
		sub.FormError(msgChangeEmailDevice)
		return directive{failed: sub}, nil
	}

	err := h.profile.ChangeEmail(c.Request.Context(), userID, newEmail)
	if errors.Is(err, domain.ErrEmailTaken) {
		sub.FormError(msgEmailTaken)
		return directive{failed: sub}, nil
	}
	if err != nil {
		return directive{}, err
	}
	return directive{
		location: "/settings/profile",
		cookies:  []*http.Cookie{h.cookies.Verification.Destroy(v)},
		toast:    &Toast{Type: toastSuccess, Title: "Email Changed", Description: "Your email has been changed to " + newEmail},
	}, nil
}

func (h *VerifyHandler) completeTwoFactorSetup(c *gin.Context, target string, sub *form.Submission) (directive, error) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" || userID != target {
		return directive{location: withRedirect("/login", "/settings/profile/two-factor")}, nil
	}
	err := h.verifier.Promote(c.Request.Context(), userID)
	if errors.Is(err, domain.ErrVerificationNotFound) {
		sub.FieldError("code", msgInvalidCode)
		return directive{failed: sub}, nil
	}
	if err != nil {
		return directive{}, err
	}
	return directive{
		location: "/settings/profile/two-factor",
		toast:    &Toast{Type: toastSuccess, Title: "Enabled", Description: "Two-factor authentication has been enabled."},
	}, nil
}

// completeTwoFactorLogin releases a session parked at login.
func (h *VerifyHandler) completeTwoFactorLogin(c *gin.Context, target string, _ *form.Submission) (directive, error) {
	v := h.cookies.Verification.Get(c.Request)
	sessionID, _ := v.Get(keyUnverifiedSessionID)
	remember, _ := v.Get(keyRemember)
	redirectTo, _ := v.Get(keyRedirectTo)

	var (
		s   *domain.Session
		err = domain.ErrSessionNotFound
	)
	if sessionID != "" {
		s, err = h.auth.Session(c.Request.Context(), sessionID)
	}
	if errors.Is(err, domain.ErrSessionNotFound) || (err == nil && s.UserID != target) {
		return directive{
			location: "/login",
			cookies:  []*http.Cookie{h.cookies.Verification.Destroy(v)},
			toast:    &Toast{Type: toastError, Title: "Invalid session", Description: "Could not find session to verify. Please try again."},
		}, nil
	}
	if err != nil {
		return directive{}, err
	}

	ck, err := h.cookies.sessionCookie(c, s, remember == "true")
	if err != nil {
		return directive{}, err
	}
	return directive{
		location: safeRedirect(redirectTo),
		cookies:  []*http.Cookie{ck, h.cookies.Verification.Destroy(v)},
	}, nil
}
