package httptransport

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/accounts/internal/transport/http/handler"
	"github.com/ErlanBelekov/accounts/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Verify     *handler.VerifyHandler
	Onboarding *handler.OnboardingHandler
	Settings   *handler.SettingsHandler
	Resources  *handler.ResourceHandler
	Toast      *handler.ToastHandler
}

type sessionResolver interface {
	UserIDFromSession(ctx context.Context, sessionID string) (string, error)
}

func NewRouter(logger *slog.Logger, h Handlers, cookies *handler.Cookies, sessions sessionResolver) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cookies.Secure))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Authenticate(cookies.Session, sessions, logger))

	// Anonymous-only flows
	anon := r.Group("", middleware.RequireAnonymous())
	anon.GET("/signup", h.Auth.SignupPage)
	anon.POST("/signup", h.Auth.Signup)
	anon.GET("/login", h.Auth.LoginPage)
	anon.POST("/login", h.Auth.Login)
	anon.GET("/forgot-password", h.Auth.ForgotPasswordPage)
	anon.POST("/forgot-password", h.Auth.ForgotPassword)
	anon.GET("/reset-password", h.Auth.ResetPasswordPage)
	anon.POST("/reset-password", h.Auth.ResetPassword)
	anon.GET("/onboarding", h.Onboarding.OnboardingPage)
	anon.POST("/onboarding", h.Onboarding.Onboarding)
	anon.GET("/onboarding/:provider", h.Onboarding.ProviderOnboardingPage)
	anon.POST("/onboarding/:provider", h.Onboarding.ProviderOnboarding)

	// Open to everyone; handlers branch on the actor themselves
	r.POST("/logout", h.Auth.Logout)
	r.GET("/verify", h.Verify.Show)
	r.POST("/verify", h.Verify.Verify)
	r.POST("/auth/:provider", h.Onboarding.ProviderStart)
	r.GET("/auth/:provider/callback", h.Onboarding.ProviderCallback)

	resources := r.Group("/resources")
	resources.GET("/toast", h.Toast.Pop)
	resources.POST("/theme-switch", h.Resources.ThemeSwitch)
	resources.GET("/user-images/:id", h.Resources.UserImage)

	// Signed-in settings
	settings := r.Group("/settings/profile", middleware.RequireUser())
	settings.GET("", h.Settings.Profile)
	settings.GET("/password", h.Settings.PasswordPage)
	settings.POST("/password", h.Settings.ChangePassword)
	settings.GET("/password/create", h.Settings.CreatePasswordPage)
	settings.POST("/password/create", h.Settings.CreatePassword)
	settings.POST("/photo", h.Settings.Photo)
	settings.GET("/change-email", h.Settings.ChangeEmailPage)
	settings.POST("/change-email", h.Settings.ChangeEmail)
	settings.GET("/two-factor", h.Settings.TwoFactor)
	settings.POST("/two-factor", h.Settings.UpdateTwoFactor)

	return r
}
