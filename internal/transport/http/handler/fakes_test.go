package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ErlanBelekov/accounts/internal/cookie"
	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/form"
	"github.com/ErlanBelekov/accounts/internal/oauth"
	"github.com/ErlanBelekov/accounts/internal/transport/http/handler"
	"github.com/ErlanBelekov/accounts/internal/transport/http/middleware"
	"github.com/ErlanBelekov/accounts/internal/usecase"
	"github.com/gin-gonic/gin"
)

const testSecret = "handler-test-secret-at-least-32-chars"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCookies(t *testing.T) *handler.Cookies {
	t.Helper()
	codec, err := cookie.NewCodec(testSecret)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return handler.NewCookies(codec, false)
}

// testUserHeader lets a test act as a signed-in user without a session store.
const testUserHeader = "X-Test-User"

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader(testUserHeader); id != "" {
			c.Set(middleware.UserIDKey, id)
		}
		c.Next()
	})
	return r
}

// fakeAuth covers every auth-facing interface the handlers declare. Unset
// TwoFactorEnabled and Logout behave like a user without 2FA.
type fakeAuth struct {
	twoFactorEnabled     func(ctx context.Context, userID string) (bool, error)
	logout               func(ctx context.Context, id string) error
	startSignup          func(ctx context.Context, email, redirectTo string) (*usecase.Prepared, error)
	login                func(ctx context.Context, usernameOrEmail, password string) (*domain.Session, error)
	requestPasswordReset func(ctx context.Context, usernameOrEmail string) (string, error)
	resetPassword        func(ctx context.Context, username, password string) error
	resetPasswordTarget  func(ctx context.Context, target string) (string, error)
	session              func(ctx context.Context, id string) (*domain.Session, error)
	usernameTaken        func(ctx context.Context, username string) (bool, error)
	signup               func(ctx context.Context, in usecase.SignupInput) (*domain.Session, error)
	signupWithConnection func(ctx context.Context, in usecase.ProviderSignupInput) (*domain.Session, error)
	loginWithConnection  func(ctx context.Context, providerName, providerID string) (*domain.Session, error)
	connectionOwner      func(ctx context.Context, providerName, providerID string) (string, error)
	link                 func(ctx context.Context, userID, providerName, providerID string) error
	findByEmail          func(ctx context.Context, email string) (*domain.User, error)
	startSession         func(ctx context.Context, userID string) (*domain.Session, error)
}

func (f *fakeAuth) TwoFactorEnabled(ctx context.Context, userID string) (bool, error) {
	if f.twoFactorEnabled == nil {
		return false, nil
	}
	return f.twoFactorEnabled(ctx, userID)
}

func (f *fakeAuth) Logout(ctx context.Context, id string) error {
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx, id)
}

func (f *fakeAuth) StartSignup(ctx context.Context, email, redirectTo string) (*usecase.Prepared, error) {
	return f.startSignup(ctx, email, redirectTo)
}

func (f *fakeAuth) Login(ctx context.Context, usernameOrEmail, password string) (*domain.Session, error) {
	return f.login(ctx, usernameOrEmail, password)
}

func (f *fakeAuth) RequestPasswordReset(ctx context.Context, usernameOrEmail string) (string, error) {
	return f.requestPasswordReset(ctx, usernameOrEmail)
}

func (f *fakeAuth) ResetPassword(ctx context.Context, username, password string) error {
	return f.resetPassword(ctx, username, password)
}

func (f *fakeAuth) ResetPasswordTarget(ctx context.Context, target string) (string, error) {
	return f.resetPasswordTarget(ctx, target)
}

func (f *fakeAuth) Session(ctx context.Context, id string) (*domain.Session, error) {
	return f.session(ctx, id)
}

func (f *fakeAuth) UsernameTaken(ctx context.Context, username string) (bool, error) {
	if f.usernameTaken == nil {
		return false, nil
	}
	return f.usernameTaken(ctx, username)
}

func (f *fakeAuth) Signup(ctx context.Context, in usecase.SignupInput) (*domain.Session, error) {
	return f.signup(ctx, in)
}

func (f *fakeAuth) SignupWithConnection(ctx context.Context, in usecase.ProviderSignupInput) (*domain.Session, error) {
	return f.signupWithConnection(ctx, in)
}

func (f *fakeAuth) LoginWithConnection(ctx context.Context, providerName, providerID string) (*domain.Session, error) {
	return f.loginWithConnection(ctx, providerName, providerID)
}

func (f *fakeAuth) ConnectionOwner(ctx context.Context, providerName, providerID string) (string, error) {
	return f.connectionOwner(ctx, providerName, providerID)
}

func (f *fakeAuth) Link(ctx context.Context, userID, providerName, providerID string) error {
	return f.link(ctx, userID, providerName, providerID)
}

func (f *fakeAuth) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return f.findByEmail(ctx, email)
}

func (f *fakeAuth) StartSession(ctx context.Context, userID string) (*domain.Session, error) {
	return f.startSession(ctx, userID)
}

type fakeVerifier struct {
	isCodeValid       func(ctx context.Context, t domain.VerificationType, target, code string) (bool, error)
	consume           func(ctx context.Context, t domain.VerificationType, target string) error
	promote           func(ctx context.Context, userID string) error
	enroll            func(ctx context.Context, userID, account string) (*usecase.Enrollment, error)
	pendingEnrollment func(ctx context.Context, userID, account string) (string, error)
	twoFactorEnabled  func(ctx context.Context, userID string) (bool, error)
	disableTwoFactor  func(ctx context.Context, userID string) error
}

func (f *fakeVerifier) IsCodeValid(ctx context.Context, t domain.VerificationType, target, code string) (bool, error) {
	return f.isCodeValid(ctx, t, target, code)
}

func (f *fakeVerifier) Consume(ctx context.Context, t domain.VerificationType, target string) error {
	if f.consume == nil {
		return nil
	}
	return f.consume(ctx, t, target)
}

func (f *fakeVerifier) Promote(ctx context.Context, userID string) error {
	return f.promote(ctx, userID)
}

func (f *fakeVerifier) Enroll(ctx context.Context, userID, account string) (*usecase.Enrollment, error) {
	return f.enroll(ctx, userID, account)
}

func (f *fakeVerifier) PendingEnrollment(ctx context.Context, userID, account string) (string, error) {
	return f.pendingEnrollment(ctx, userID, account)
}

func (f *fakeVerifier) TwoFactorEnabled(ctx context.Context, userID string) (bool, error) {
	return f.twoFactorEnabled(ctx, userID)
}

func (f *fakeVerifier) DisableTwoFactor(ctx context.Context, userID string) error {
	return f.disableTwoFactor(ctx, userID)
}

type fakeProfile struct {
	profile            func(ctx context.Context, userID string) (*domain.User, error)
	replacePhoto       func(ctx context.Context, userID, contentType string, blob []byte) (*domain.UserImage, error)
	deletePhoto        func(ctx context.Context, userID string) error
	requestEmailChange func(ctx context.Context, userID, newEmail string) (*usecase.Prepared, error)
	changeEmail        func(ctx context.Context, userID, newEmail string) error
	image              func(ctx context.Context, id string) (*domain.UserImage, error)
}

func (f *fakeProfile) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return f.profile(ctx, userID)
}

func (f *fakeProfile) ReplacePhoto(ctx context.Context, userID, contentType string, blob []byte) (*domain.UserImage, error) {
	return f.replacePhoto(ctx, userID, contentType, blob)
}

func (f *fakeProfile) DeletePhoto(ctx context.Context, userID string) error {
	return f.deletePhoto(ctx, userID)
}

func (f *fakeProfile) RequestEmailChange(ctx context.Context, userID, newEmail string) (*usecase.Prepared, error) {
	return f.requestEmailChange(ctx, userID, newEmail)
}

func (f *fakeProfile) ChangeEmail(ctx context.Context, userID, newEmail string) error {
	return f.changeEmail(ctx, userID, newEmail)
}

func (f *fakeProfile) Image(ctx context.Context, id string) (*domain.UserImage, error) {
	return f.image(ctx, id)
}

type fakePasswords struct {
	hasPassword func(ctx context.Context, userID string) (bool, error)
	change      func(ctx context.Context, userID, current, next string) error
	create      func(ctx context.Context, userID, password string) error
}

func (f *fakePasswords) HasPassword(ctx context.Context, userID string) (bool, error) {
	return f.hasPassword(ctx, userID)
}

func (f *fakePasswords) Change(ctx context.Context, userID, current, next string) error {
	return f.change(ctx, userID, current, next)
}

func (f *fakePasswords) Create(ctx context.Context, userID, password string) error {
	return f.create(ctx, userID, password)
}

type fakeProvider struct {
	name     string
	identify func(ctx context.Context, code, verifier, redirectURI string) (*oauth.Identity, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state, verifier, redirectURI string) string {
	q := url.Values{"state": {state}, "redirect_uri": {redirectURI}}
	return "https://provider.test/authorize?" + q.Encode()
}

func (f *fakeProvider) Identify(ctx context.Context, code, verifier, redirectURI string) (*oauth.Identity, error) {
	return f.identify(ctx, code, verifier, redirectURI)
}

// ---- request helpers ----

func postForm(path string, values url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func get(path string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// responseCookie returns the cookie named name set by the response, or nil.
func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// readCookie decodes the named store's cookie as the next request would.
func readCookie(t *testing.T, store *cookie.Store, w *httptest.ResponseRecorder) *cookie.Session {
	t.Helper()
	c := responseCookie(w, store.Name())
	if c == nil {
		t.Fatalf("response set no %q cookie", store.Name())
	}
	return store.Get(get("/", c))
}

// commitCookie builds a request cookie for store holding values.
func commitCookie(t *testing.T, store *cookie.Store, values map[string]string) *http.Cookie {
	t.Helper()
	sess := cookie.NewSession()
	for k, v := range values {
		sess.Set(k, v)
	}
	c, err := store.Commit(sess)
	if err != nil {
		t.Fatalf("commit %s: %v", store.Name(), err)
	}
	return c
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	assertStatus(t, w, http.StatusFound)
	if got := w.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func assertDestroyed(t *testing.T, w *httptest.ResponseRecorder, name string) {
	t.Helper()
	c := responseCookie(w, name)
	if c == nil {
		t.Fatalf("response did not touch the %q cookie", name)
	}
	if c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("%s cookie = {value %q, max-age %d}, want destroyed", name, c.Value, c.MaxAge)
	}
}

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) form.Reply {
	t.Helper()
	var r form.Reply
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode reply: %v; body = %s", err, w.Body.String())
	}
	if r.Result == nil {
		t.Fatalf("reply has no result; body = %s", w.Body.String())
	}
	return r
}
