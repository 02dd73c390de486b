package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/form"
	"github.com/ErlanBelekov/accounts/internal/transport/http/middleware"
	"github.com/ErlanBelekov/accounts/internal/usecase"
	"github.com/gin-gonic/gin"
)

type profileUsecaser interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
	ReplacePhoto(ctx context.Context, userID, contentType string, blob []byte) (*domain.UserImage, error)
	DeletePhoto(ctx context.Context, userID string) error
	RequestEmailChange(ctx context.Context, userID, newEmail string) (*usecase.Prepared, error)
}

type passwordUsecaser interface {
	HasPassword(ctx context.Context, userID string) (bool, error)
	Change(ctx context.Context, userID, current, next string) error
	Create(ctx context.Context, userID, password string) error
}

type twoFactorUsecaser interface {
	Enroll(ctx context.Context, userID, account string) (*usecase.Enrollment, error)
	PendingEnrollment(ctx context.Context, userID, account string) (string, error)
	TwoFactorEnabled(ctx context.Context, userID string) (bool, error)
	DisableTwoFactor(ctx context.Context, userID string) error
}

type SettingsHandler struct {
	profile   profileUsecaser
	passwords passwordUsecaser
	twoFactor twoFactorUsecaser
	cookies   *Cookies
	logger    *slog.Logger
}

func NewSettingsHandler(profile profileUsecaser, passwords passwordUsecaser, twoFactor twoFactorUsecaser, cookies *Cookies, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		profile:   profile,
		passwords: passwords,
		twoFactor: twoFactor,
		cookies:   cookies,
		logger:    logger.With("component", "settings_handler"),
	}
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	ImageID   *string   `json:"imageId"`
	CreatedAt time.Time `json:"createdAt"`
}

// user loads the signed-in user, answering 404 when the row is gone.
func (h *SettingsHandler) user(c *gin.Context) (*domain.User, bool) {
	u, err := h.profile.Profile(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if errors.Is(err, domain.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
		return nil, false
	}
	if err != nil {
		internalError(c, h.logger, "load profile", err)
		return nil, false
	}
	return u, true
}

// GET /settings/profile
func (h *SettingsHandler) Profile(c *gin.Context) {
	u, ok := h.user(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		ImageID:   u.ImageID,
		CreatedAt: u.CreatedAt,
	}})
}

// requirePassword redirects when the user's password state does not match
// want, reporting whether the handler may continue.
func (h *SettingsHandler) requirePassword(c *gin.Context, want bool) bool {
	has, err := h.passwords.HasPassword(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		internalError(c, h.logger, "check password", err)
		return false
	}
	switch {
	case want && !has:
		redirect(c, "/settings/profile/password/create")
		return false
	case !want && has:
		redirect(c, "/settings/profile/password")
		return false
	}
	return true
}

type changePasswordForm struct {
	CurrentPassword    string `form:"currentPassword"    binding:"required,min=6,max=100"`
	NewPassword        string `form:"newPassword"        binding:"required,min=6,max=100"`
	ConfirmNewPassword string `form:"confirmNewPassword" binding:"required,eqfield=NewPassword"`
}

// GET /settings/profile/password
func (h *SettingsHandler) PasswordPage(c *gin.Context) {
	if !h.requirePassword(c, true) {
		return
	}
	reply(c, http.StatusOK, form.Idle(nil))
}

// POST /settings/profile/password
func (h *SettingsHandler) ChangePassword(c *gin.Context) {
	if !h.requirePassword(c, true) {
		return
	}

	var req changePasswordForm
	sub := form.Bind(c, &req).Hide("currentPassword", "newPassword", "confirmNewPassword")
	if sub.Failed() {
		fail(c, sub)
		return
	}

	err := h.passwords.Change(c.Request.Context(), c.GetString(middleware.UserIDKey), req.CurrentPassword, req.NewPassword)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		sub.FieldError("currentPassword", msgIncorrectPassword)
		fail(c, sub)
		return
	}
	if err != nil {
		internalError(c, h.logger, "change password", err)
		return
	}
	redirect(c, "/settings/profile",
		h.cookies.toastCookie(c, h.logger, Toast{Type: toastSuccess, Title: "Password Changed", Description: "Your password has been changed."}))
}

type createPasswordForm struct {
	Password        string `form:"password"        binding:"required,min=6,max=100"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=Password"`
}

// GET /settings/profile/password/create
func (h *SettingsHandler) CreatePasswordPage(c *gin.Context) {
	if !h.requirePassword(c, false) {
		return
	}
	reply(c, http.StatusOK, form.Idle(nil))
}

// POST /settings/profile/password/create
func (h *SettingsHandler) CreatePassword(c *gin.Context) {
	if !h.requirePassword(c, false) {
		return
	}

	var req createPasswordForm
	sub := form.Bind(c, &req).Hide("password", "confirmPassword")
	if sub.Failed() {
		fail(c, sub)
		return
	}

	err := h.passwords.Create(c.Request.Context(), c.GetString(middleware.UserIDKey), req.Password)
	if errors.Is(err, domain.ErrPasswordAlreadySet) {
		redirect(c, "/settings/profile/password")
		return
	}
	if err != nil {
		internalError(c, h.logger, "create password", err)
		return
	}
	redirect(c, "/settings/profile",
		h.cookies.toastCookie(c, h.logger, Toast{Type: toastSuccess, Title: "Password Created", Description: "Your password has been created."}))
}

const photoFormMemory = 8 << 20

type photoForm struct {
	Intent string `form:"intent" binding:"required,oneof=submit delete"`
}

// POST /settings/profile/photo
// Multipart: intent=submit with photoFile, or intent=delete.
func (h *SettingsHandler) Photo(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(middleware.UserIDKey)

	// Bound the upload; the photo size itself is checked below.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 4*usecase.MaxPhotoSize)
	var tooLarge *http.MaxBytesError
	if err := c.Request.ParseMultipartForm(photoFormMemory); errors.As(err, &tooLarge) {
		sub := form.FromValues(c.Request.Form)
		sub.FieldError("photoFile", msgImageTooLarge)
		fail(c, sub)
		return
	}

	var req photoForm
	sub := form.Bind(c, &req)
	if sub.Failed() {
		fail(c, sub)
		return
	}

	if req.Intent == "delete" {
		if err := h.profile.DeletePhoto(ctx, userID); err != nil {
			internalError(c, h.logger, "delete photo", err)
			return
		}
		redirect(c, "/settings/profile")
		return
	}

	fh, err := c.FormFile("photoFile")
	if err != nil || fh.Size == 0 {
		sub.FieldError("photoFile", msgImageRequired)
		fail(c, sub)
		return
	}
	if fh.Size > usecase.MaxPhotoSize {
		sub.FieldError("photoFile", msgImageTooLarge)
		fail(c, sub)
		return
	}

	f, err := fh.Open()
	if err != nil {
		internalError(c, h.logger, "open photo", err)
		return
	}
	defer f.Close()
	blob, err := io.ReadAll(io.LimitReader(f, usecase.MaxPhotoSize+1))
	if err != nil {
		internalError(c, h.logger, "read photo", err)
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(blob)
	}

	_, err = h.profile.ReplacePhoto(ctx, userID, contentType, blob)
	if errors.Is(err, usecase.ErrPhotoTooLarge) {
		sub.FieldError("photoFile", msgImageTooLarge)
		fail(c, sub)
		return
	}
	if err != nil {
		internalError(c, h.logger, "replace photo", err)
		return
	}
	redirect(c, "/settings/profile")
}

type changeEmailForm struct {
	Email string `form:"email" binding:"required,email,min=3,max=100"`
}

// GET /settings/profile/change-email
func (h *SettingsHandler) ChangeEmailPage(c *gin.Context) {
	u, ok := h.user(c)
	if !ok {
		return
	}
	reply(c, http.StatusOK, form.Idle(map[string]string{"currentEmail": u.Email}))
}

// POST /settings/profile/change-email
// Mails a code to the new address and parks the address in this browser.
func (h *SettingsHandler) ChangeEmail(c *gin.Context) {
	var req changeEmailForm
	sub := form.Bind(c, &req)
	if sub.Failed() {
		fail(c, sub)
		return
	}

	p, err := h.profile.RequestEmailChange(c.Request.Context(), c.GetString(middleware.UserIDKey), req.Email)
	if errors.Is(err, domain.ErrEmailTaken) {
		sub.FieldError("email", msgEmailTaken)
		fail(c, sub)
		return
	}
	if err != nil {
		internalError(c, h.logger, "request email change", err)
		return
	}

	v := h.cookies.Verification.Get(c.Request)
	v.Set(keyNewEmailAddress, req.Email)
	ck, err := h.cookies.Verification.Commit(v)
	if err != nil {
		internalError(c, h.logger, "commit verification cookie", err)
		return
	}
	redirect(c, p.RedirectTo, ck)
}

// GET /settings/profile/two-factor
func (h *SettingsHandler) TwoFactor(c *gin.Context) {
	u, ok := h.user(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	enabled, err := h.twoFactor.TwoFactorEnabled(ctx, u.ID)
	if err != nil {
		internalError(c, h.logger, "check two factor", err)
		return
	}
	resp := gin.H{"enabled": enabled}
	if !enabled {
		uri, err := h.twoFactor.PendingEnrollment(ctx, u.ID, u.Email)
		switch {
		case err == nil:
			resp["pendingKeyUri"] = uri
			resp["verifyPath"] = usecase.VerifyPath(domain.VerificationTwoFactorVerify, u.ID, "", "")
		case !errors.Is(err, domain.ErrVerificationNotFound):
			internalError(c, h.logger, "load pending enrollment", err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

type twoFactorForm struct {
	Intent string `form:"intent" binding:"required,oneof=enable disable"`
}

// POST /settings/profile/two-factor
func (h *SettingsHandler) UpdateTwoFactor(c *gin.Context) {
	var req twoFactorForm
	sub := form.Bind(c, &req)
	if sub.Failed() {
		fail(c, sub)
		return
	}
	ctx := c.Request.Context()

	if req.Intent == "disable" {
		if err := h.twoFactor.DisableTwoFactor(ctx, c.GetString(middleware.UserIDKey)); err != nil {
			internalError(c, h.logger, "disable two factor", err)
			return
		}
		redirect(c, "/settings/profile/two-factor",
			h.cookies.toastCookie(c, h.logger, Toast{Type: toastSuccess, Title: "2FA Disabled", Description: "Two factor authentication has been disabled."}))
		return
	}

	u, ok := h.user(c)
	if !ok {
		return
	}
	e, err := h.twoFactor.Enroll(ctx, u.ID, u.Email)
	if err != nil {
		internalError(c, h.logger, "enroll two factor", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"keyUri":     e.KeyURI,
		"verifyPath": usecase.VerifyPath(domain.VerificationTwoFactorVerify, u.ID, "", ""),
	})
}
