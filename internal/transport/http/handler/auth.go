package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/form"
	"github.com/ErlanBelekov/accounts/internal/transport/http/middleware"
	"github.com/ErlanBelekov/accounts/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	sessionUsecaser
	StartSignup(ctx context.Context, email, redirectTo string) (*usecase.Prepared, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*domain.Session, error)
	RequestPasswordReset(ctx context.Context, usernameOrEmail string) (string, error)
	ResetPassword(ctx context.Context, username, password string) error
}

type AuthHandler struct {
	auth    authUsecaser
	cookies *Cookies
	start   *sessionStarter
	logger  *slog.Logger
}

func NewAuthHandler(auth authUsecaser, cookies *Cookies, logger *slog.Logger) *AuthHandler {
	logger = logger.With("component", "auth_handler")
	return &AuthHandler{
		auth:    auth,
		cookies: cookies,
		start:   &sessionStarter{cookies: cookies, sessions: auth, logger: logger},
		logger:  logger,
	}
}

type signupForm struct {
	Email      string `form:"email"      binding:"required,email,min=3,max=100"`
	RedirectTo string `form:"redirectTo"`
}

// GET /signup
func (h *AuthHandler) SignupPage(c *gin.Context) {
	reply(c, http.StatusOK, form.Idle(map[string]string{"redirectTo": c.Query("redirectTo")}))
}

// POST /signup
// Mails an onboarding code and sends the browser to the code page.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupForm
	sub := form.Bind(c, &req)
	if sub.Failed() {
		fail(c, sub)
		return
	}

	p, err := h.auth.StartSignup(c.Request.Context(), req.Email, safeRedirectOrEmpty(req.RedirectTo))
	if errors.Is(err, domain.ErrEmailTaken) {
		sub.FieldError("email", msgEmailTaken)
		fail(c, sub)
		return
	}
	if err != nil {
		internalError(c, h.logger, "start signup", err)
		return
	}
	redirect(c, p.RedirectTo)
}

type loginForm struct {
	Username   string `form:"username"   binding:"required,min=3,max=100"`
	Password   string `form:"password"   binding:"required,min=6,max=100"`
	Remember   string `form:"remember"`
	RedirectTo string `form:"redirectTo"`
}

// GET /login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	reply(c, http.StatusOK, form.Idle(map[string]string{"redirectTo": c.Query("redirectTo")}))
}

// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginForm
	sub := form.Bind(c, &req).Hide("password")
	if sub.Failed() {
		fail(c, sub)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		sub.FormError(msgInvalidCredentials)
		fail(c, sub)
		return
	}
	if err != nil {
		internalError(c, h.logger, "login", err)
		return
	}
	h.start.begin(c, session, checked(req.Remember), req.RedirectTo)
}

// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := h.cookies.Session.Get(c.Request)
	if id, ok := sess.Get(middleware.SessionIDKey); ok {
		if err := h.auth.Logout(c.Request.Context(), id); err != nil {
			internalError(c, h.logger, "logout", err)
			return
		}
	}
	redirect(c, "/", h.cookies.Session.Destroy(sess))
}

type forgotPasswordForm struct {
	UsernameOrEmail string `form:"usernameOrEmail" binding:"required,min=3,max=100"`
}

// GET /forgot-password
func (h *AuthHandler) ForgotPasswordPage(c *gin.Context) {
	reply(c, http.StatusOK, form.Idle(nil))
}

// POST /forgot-password
// Responds identically whether or not the user exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordForm
	sub := form.Bind(c, &req)
	if sub.Failed() {
		fail(c, sub)
		return
	}

	target, err := h.auth.RequestPasswordReset(c.Request.Context(), req.UsernameOrEmail)
	if err != nil {
		internalError(c, h.logger, "request password reset", err)
		return
	}
	redirect(c, usecase.VerifyPath(domain.VerificationResetPassword, target, "", ""))
}

type resetPasswordForm struct {
	Password        string `form:"password"        binding:"required,min=6,max=100"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=Password"`
}

// requireResetUsername returns the username verified for reset, or
// redirects to /login and returns "".
func (h *AuthHandler) requireResetUsername(c *gin.Context) string {
	username, ok := h.cookies.Verification.Get(c.Request).Get(keyResetPasswordUsername)
	if !ok || username == "" {
		redirect(c, "/login")
		return ""
	}
	return username
}

// GET /reset-password
func (h *AuthHandler) ResetPasswordPage(c *gin.Context) {
	username := h.requireResetUsername(c)
	if username == "" {
		return
	}
	reply(c, http.StatusOK, form.Idle(map[string]string{"resetPasswordUsername": username}))
}

// POST /reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	username := h.requireResetUsername(c)
	if username == "" {
		return
	}

	var req resetPasswordForm
	sub := form.Bind(c, &req).Hide("password", "confirmPassword")
	if sub.Failed() {
		fail(c, sub)
		return
	}

	err := h.auth.ResetPassword(c.Request.Context(), username, req.Password)
	if errors.Is(err, domain.ErrUserNotFound) {
		redirect(c, "/login", h.cookies.Verification.Destroy(nil))
		return
	}
	if err != nil {
		internalError(c, h.logger, "reset password", err)
		return
	}
	redirect(c, "/login", h.cookies.Verification.Destroy(nil))
}

// safeRedirectOrEmpty keeps an empty redirect empty so links stay short.
func safeRedirectOrEmpty(to string) string {
	if to == "" {
		return ""
	}
	return safeRedirect(to)
}

// checked reads an HTML checkbox value.
func checked(v string) bool {
	return v == "on" || v == "true"
}
