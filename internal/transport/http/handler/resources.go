package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/form"
	"github.com/gin-gonic/gin"
)

type imageUsecaser interface {
	Image(ctx context.Context, id string) (*domain.UserImage, error)
}

// ResourceHandler serves the small endpoints pages call directly.
type ResourceHandler struct {
	images  imageUsecaser
	cookies *Cookies
	logger  *slog.Logger
}

func NewResourceHandler(images imageUsecaser, cookies *Cookies, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		images:  images,
		cookies: cookies,
		logger:  logger.With("component", "resource_handler"),
	}
}

type themeForm struct {
	Theme      string `form:"theme"      binding:"required,oneof=system light dark"`
	RedirectTo string `form:"redirectTo"`
}

// POST /resources/theme-switch
// "system" clears the preference so the client follows the OS.
func (h *ResourceHandler) ThemeSwitch(c *gin.Context) {
	var req themeForm
	sub := form.Bind(c, &req)
	if sub.Failed() {
		fail(c, sub)
		return
	}

	ck := &http.Cookie{
		Name:     themeCookie,
		Value:    req.Theme,
		Path:     "/",
		MaxAge:   int(themeMaxAge.Seconds()),
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if req.Theme == "system" {
		ck.Value = ""
		ck.MaxAge = -1
	}

	if req.RedirectTo != "" {
		redirect(c, safeRedirect(req.RedirectTo), ck)
		return
	}
	setCookies(c, ck)
	sub.Status = form.StatusSuccess
	reply(c, http.StatusOK, sub)
}

// GET /resources/user-images/:id
// Images are immutable: a new upload gets a new id.
func (h *ResourceHandler) UserImage(c *gin.Context) {
	img, err := h.images.Image(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrImageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
		return
	}
	if err != nil {
		internalError(c, h.logger, "load image", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, img.ContentType, img.Blob)
}
