package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/form"
	"github.com/ErlanBelekov/accounts/internal/oauth"
	"github.com/ErlanBelekov/accounts/internal/transport/http/middleware"
	"github.com/ErlanBelekov/accounts/internal/usecase"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

type onboardingUsecaser interface {
	sessionUsecaser
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Signup(ctx context.Context, in usecase.SignupInput) (*domain.Session, error)
	SignupWithConnection(ctx context.Context, in usecase.ProviderSignupInput) (*domain.Session, error)
	LoginWithConnection(ctx context.Context, providerName, providerID string) (*domain.Session, error)
	ConnectionOwner(ctx context.Context, providerName, providerID string) (string, error)
	Link(ctx context.Context, userID, providerName, providerID string) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	StartSession(ctx context.Context, userID string) (*domain.Session, error)
}

type providerLookup interface {
	Get(name string) (oauth.Provider, error)
}

type OnboardingHandler struct {
	auth      onboardingUsecaser
	providers providerLookup
	cookies   *Cookies
	start     *sessionStarter
	baseURL   string
	logger    *slog.Logger
}

func NewOnboardingHandler(auth onboardingUsecaser, providers providerLookup, cookies *Cookies, baseURL string, logger *slog.Logger) *OnboardingHandler {
	logger = logger.With("component", "onboarding_handler")
	return &OnboardingHandler{
		auth:      auth,
		providers: providers,
		cookies:   cookies,
		start:     &sessionStarter{cookies: cookies, sessions: auth, logger: logger},
		baseURL:   baseURL,
		logger:    logger,
	}
}

// prefilledProfile is what the provider told us, offered as form defaults.
type prefilledProfile struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type onboardingForm struct {
	Username        string `form:"username"        binding:"required,min=3,max=20,username"`
	Name            string `form:"name"            binding:"required,min=3,max=40"`
	Password        string `form:"password"        binding:"required,min=6,max=100"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=Password"`
	AgreeToTerms    string `form:"agreeToTermsOfServiceAndPrivacyPolicy" binding:"required"`
	Remember        string `form:"remember"`
	RedirectTo      string `form:"redirectTo"`
}

type providerOnboardingForm struct {
	Username     string `form:"username"     binding:"required,min=3,max=20,username"`
	Name         string `form:"name"         binding:"required,min=3,max=40"`
	ImageURL     string `form:"imageUrl"     binding:"omitempty,url"`
	AgreeToTerms string `form:"agreeToTermsOfServiceAndPrivacyPolicy" binding:"required"`
	Remember     string `form:"remember"`
	RedirectTo   string `form:"redirectTo"`
}

// requireOnboardingEmail returns the verified email, or redirects to
// /signup and returns "".
func (h *OnboardingHandler) requireOnboardingEmail(c *gin.Context) string {
	email, ok := h.cookies.Verification.Get(c.Request).Get(keyOnboardingEmail)
	if !ok || email == "" {
		redirect(c, "/signup")
		return ""
	}
	return email
}

// GET /onboarding
func (h *OnboardingHandler) OnboardingPage(c *gin.Context) {
	email := h.requireOnboardingEmail(c)
	if email == "" {
		return
	}
	reply(c, http.StatusOK, form.Idle(map[string]string{"email": email, "redirectTo": c.Query("redirectTo")}))
}

// POST /onboarding
func (h *OnboardingHandler) Onboarding(c *gin.Context) {
	email := h.requireOnboardingEmail(c)
	if email == "" {
		return
	}
	ctx := c.Request.Context()

	var req onboardingForm
	sub := form.Bind(c, &req).Hide("password", "confirmPassword")
	if !sub.Failed() {
		h.checkUsername(c, sub, req.Username)
	}
	if sub.Failed() {
		fail(c, sub)
		return
	}

	session, err := h.auth.Signup(ctx, usecase.SignupInput{
		Email:    email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	if h.signupConflict(c, sub, err) {
		return
	}
	if err != nil {
		internalError(c, h.logger, "signup", err)
		return
	}

	h.start.begin(c, session, checked(req.Remember), req.RedirectTo,
		h.cookies.Verification.Destroy(nil),
		h.cookies.toastCookie(c, h.logger, Toast{Type: toastSuccess, Title: "Welcome", Description: "Thanks for signing up!"}),
	)
}

// checkUsername adds the taken message when the pre-check finds a clash.
func (h *OnboardingHandler) checkUsername(c *gin.Context, sub *form.Submission, username string) {
	taken, err := h.auth.UsernameTaken(c.Request.Context(), username)
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "username pre-check", "error", err)
		return
	}
	if taken {
		sub.FieldError("username", msgUsernameTaken)
	}
}

// signupConflict maps a lost uniqueness race to the same field messages
// the pre-check produces and reports whether a response was written.
func (h *OnboardingHandler) signupConflict(c *gin.Context, sub *form.Submission, err error) bool {
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		sub.FieldError("username", msgUsernameTaken)
	case errors.Is(err, domain.ErrEmailTaken):
		sub.FormError(msgEmailTaken)
	case errors.Is(err, domain.ErrConnectionExists):
		sub.FormError(msgAccountAlreadyLinked)
	default:
		return false
	}
	fail(c, sub)
	return true
}

type providerState struct {
	provider string
	email    string
	id       string
	profile  prefilledProfile
}

// requireProviderOnboarding checks everything provider onboarding needs,
// redirecting to /signup when any of it is missing.
func (h *OnboardingHandler) requireProviderOnboarding(c *gin.Context) (providerState, bool) {
	name := c.Param("provider")
	v := h.cookies.Verification.Get(c.Request)
	email, _ := v.Get(keyOnboardingEmail)
	providerID, _ := v.Get(keyProviderID)
	if _, err := h.providers.Get(name); err != nil || email == "" || providerID == "" {
		redirect(c, "/signup")
		return providerState{}, false
	}

	st := providerState{provider: name, email: email, id: providerID, profile: prefilledProfile{Email: email}}
	if raw, ok := v.Get(keyPrefilledProfile); ok {
		if err := json.Unmarshal([]byte(raw), &st.profile); err != nil {
			h.logger.WarnContext(c.Request.Context(), "ignore malformed prefilled profile", "error", err)
			st.profile = prefilledProfile{Email: email}
		}
	}
	return st, true
}

// GET /onboarding/:provider
func (h *OnboardingHandler) ProviderOnboardingPage(c *gin.Context) {
	st, ok := h.requireProviderOnboarding(c)
	if !ok {
		return
	}
	reply(c, http.StatusOK, form.Idle(map[string]string{
		"email":      st.email,
		"username":   st.profile.Username,
		"name":       st.profile.Name,
		"imageUrl":   st.profile.ImageURL,
		"redirectTo": c.Query("redirectTo"),
	}))
}

// POST /onboarding/:provider
func (h *OnboardingHandler) ProviderOnboarding(c *gin.Context) {
	st, ok := h.requireProviderOnboarding(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req providerOnboardingForm
	sub := form.Bind(c, &req)
	if !sub.Failed() {
		h.checkUsername(c, sub, req.Username)
	}
	if sub.Failed() {
		fail(c, sub)
		return
	}

	// Only the provider's own picture is ever downloaded.
	imageURL := ""
	if req.ImageURL != "" && req.ImageURL == st.profile.ImageURL {
		imageURL = req.ImageURL
	}

	session, err := h.auth.SignupWithConnection(ctx, usecase.ProviderSignupInput{
		Email:        st.email,
		Username:     req.Username,
		Name:         req.Name,
		ProviderName: st.provider,
		ProviderID:   st.id,
		ImageURL:     imageURL,
	})
	if h.signupConflict(c, sub, err) {
		return
	}
	if err != nil {
		internalError(c, h.logger, "signup with connection", err)
		return
	}

	h.start.begin(c, session, checked(req.Remember), req.RedirectTo,
		h.cookies.Verification.Destroy(nil),
		h.cookies.toastCookie(c, h.logger, Toast{Type: toastSuccess, Title: "Welcome", Description: "Thanks for signing up!"}),
	)
}

func (h *OnboardingHandler) callbackURL(provider string) string {
	return h.baseURL + "/auth/" + provider + "/callback"
}

// POST /auth/:provider
// Starts the provider's consent flow. State and PKCE verifier travel in
// the verification cookie.
func (h *OnboardingHandler) ProviderStart(c *gin.Context) {
	name := c.Param("provider")
	p, err := h.providers.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
		return
	}

	state, err := oauth.NewState()
	if err != nil {
		internalError(c, h.logger, "oauth state", err)
		return
	}
	verifier := oauth2.GenerateVerifier()

	v := h.cookies.Verification.Get(c.Request)
	v.Set(keyOAuthState, state)
	v.Set(keyOAuthVerifier, verifier)
	v.Set(keyRedirectTo, safeRedirectOrEmpty(c.PostForm("redirectTo")))
	ck, err := h.cookies.Verification.Commit(v)
	if err != nil {
		internalError(c, h.logger, "commit verification cookie", err)
		return
	}
	redirect(c, p.AuthCodeURL(state, verifier, h.callbackURL(name)), ck)
}

// GET /auth/:provider/callback
func (h *OnboardingHandler) ProviderCallback(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("provider")
	p, err := h.providers.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
		return
	}

	v := h.cookies.Verification.Get(c.Request)
	state, _ := v.Get(keyOAuthState)
	verifier, _ := v.Get(keyOAuthVerifier)
	redirectTo, _ := v.Get(keyRedirectTo)
	v.Unset(keyOAuthState)
	v.Unset(keyOAuthVerifier)

	if state == "" || c.Query("state") != state || c.Query("code") == "" {
		h.authFailed(c, "state mismatch", nil)
		return
	}
	id, err := p.Identify(ctx, c.Query("code"), verifier, h.callbackURL(name))
	if err != nil {
		h.authFailed(c, "identify", err)
		return
	}

	userID := c.GetString(middleware.UserIDKey)

	owner, err := h.auth.ConnectionOwner(ctx, name, id.ID)
	switch {
	case err == nil && userID != "":
		desc := "Your account is already connected."
		if owner != userID {
			desc = msgAccountAlreadyLinked
		}
		redirect(c, "/settings/profile", h.cookies.Verification.Destroy(v),
			h.cookies.toastCookie(c, h.logger, Toast{Type: toastMessage, Title: "Already Connected", Description: desc}))
		return
	case err == nil:
		session, err := h.auth.LoginWithConnection(ctx, name, id.ID)
		if err != nil {
			internalError(c, h.logger, "login with connection", err)
			return
		}
		h.start.begin(c, session, true, redirectTo, h.cookies.Verification.Destroy(v))
		return
	case !errors.Is(err, domain.ErrConnectionNotFound):
		internalError(c, h.logger, "find connection", err)
		return
	}

	// Signed in: link the identity to the current account.
	if userID != "" {
		if err = h.auth.Link(ctx, userID, name, id.ID); err != nil {
			internalError(c, h.logger, "link connection", err)
			return
		}
		redirect(c, "/settings/profile", h.cookies.Verification.Destroy(v),
			h.cookies.toastCookie(c, h.logger, Toast{Type: toastSuccess, Title: "Connected", Description: "Your " + name + " account has been connected."}))
		return
	}

	// An account with the same email: link and sign in.
	user, err := h.auth.FindByEmail(ctx, id.Email)
	if err == nil {
		if err = h.auth.Link(ctx, user.ID, name, id.ID); err != nil {
			internalError(c, h.logger, "link connection", err)
			return
		}
		session, err := h.auth.StartSession(ctx, user.ID)
		if err != nil {
			internalError(c, h.logger, "start session", err)
			return
		}
		h.start.begin(c, session, true, redirectTo, h.cookies.Verification.Destroy(v),
			h.cookies.toastCookie(c, h.logger, Toast{Type: toastSuccess, Title: "Connected", Description: "Your " + name + " account has been connected."}))
		return
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		internalError(c, h.logger, "find user", err)
		return
	}

	// New user: park the identity and continue to provider onboarding.
	profile, err := json.Marshal(prefilledProfile{
		Email:    id.Email,
		Username: sanitizeUsername(id.Username),
		Name:     id.Name,
		ImageURL: id.ImageURL,
	})
	if err != nil {
		internalError(c, h.logger, "encode prefilled profile", err)
		return
	}
	v.Set(keyOnboardingEmail, strings.ToLower(id.Email))
	v.Set(keyProviderID, id.ID)
	v.Set(keyPrefilledProfile, string(profile))
	ck, err := h.cookies.Verification.Commit(v)
	if err != nil {
		internalError(c, h.logger, "commit verification cookie", err)
		return
	}
	redirect(c, withRedirect("/onboarding/"+name, redirectTo), ck)
}

func (h *OnboardingHandler) authFailed(c *gin.Context, reason string, err error) {
	h.logger.WarnContext(c.Request.Context(), "provider auth failed", "reason", reason, "error", err)
	redirect(c, "/login",
		h.cookies.toastCookie(c, h.logger, Toast{Type: toastError, Title: "Auth Failed", Description: "There was an error authenticating with the provider."}))
}

var nonUsernameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeUsername(s string) string {
	return strings.ToLower(nonUsernameChars.ReplaceAllString(s, "_"))
}
