package cookie_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/accounts/internal/cookie"
)

const (
	secretA = "cookie-test-secret-a-32-chars!!!"
	secretB = "cookie-test-secret-b-32-chars!!!"
)

func mustCodec(t *testing.T, secrets ...string) *cookie.Codec {
	t.Helper()
	c, err := cookie.NewCodec(secrets...)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestNewCodec_NoSecrets(t *testing.T) {
	if _, err := cookie.NewCodec("", ""); !errors.Is(err, cookie.ErrNoSecrets) {
		t.Errorf("err = %v, want ErrNoSecrets", err)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	c := mustCodec(t, secretA)
	raw, err := c.Encode(map[string]string{"onboardingEmail": "a@b.co"}, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["onboardingEmail"] != "a@b.co" {
		t.Errorf("values = %v", got)
	}
}

func TestCodec_RotatedSecretStillVerifies(t *testing.T) {
	old := mustCodec(t, secretA)
	raw, _ := old.Encode(map[string]string{"k": "v"}, time.Time{})

	rotated := mustCodec(t, secretB, secretA)
	if _, err := rotated.Decode(raw); err != nil {
		t.Errorf("rotated codec rejected cookie signed by old secret: %v", err)
	}

	other := mustCodec(t, secretB)
	if _, err := other.Decode(raw); err == nil {
		t.Error("cookie accepted by codec without the signing secret")
	}
}

func TestCodec_RejectsTamperedAndExpired(t *testing.T) {
	c := mustCodec(t, secretA)

	raw, _ := c.Encode(map[string]string{"k": "v"}, time.Time{})
	parts := strings.Split(raw, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	if _, err := c.Decode(strings.Join(parts, ".")); err == nil {
		t.Error("tampered payload accepted")
	}

	expired, _ := c.Encode(map[string]string{"k": "v"}, time.Now().Add(-time.Minute))
	if _, err := c.Decode(expired); err == nil {
		t.Error("expired cookie accepted")
	}
}

func TestCodec_TooLarge(t *testing.T) {
	c := mustCodec(t, secretA)
	_, err := c.Encode(map[string]string{"big": strings.Repeat("x", cookie.MaxSize)}, time.Time{})
	if !errors.Is(err, cookie.ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestStore_GetMissingOrGarbageIsEmpty(t *testing.T) {
	s := cookie.NewStore("verification", mustCodec(t, secretA), cookie.Options{})

	if got := s.Get(requestWith(nil)); !reflect.DeepEqual(got, cookie.NewSession()) {
		t.Errorf("missing cookie: got %+v, want empty", got)
	}
	garbage := &http.Cookie{Name: "verification", Value: "not-a-token"}
	if got := s.Get(requestWith(garbage)); !reflect.DeepEqual(got, cookie.NewSession()) {
		t.Errorf("garbage cookie: got %+v, want empty", got)
	}
}

func TestStore_CommitThenGet(t *testing.T) {
	s := cookie.NewStore("verification", mustCodec(t, secretA), cookie.Options{
		MaxAge:   10 * time.Minute,
		HTTPOnly: true,
	})

	sess := s.Get(requestWith(nil))
	sess.Set("resetPasswordUsername", "alice")
	c, err := s.Commit(sess)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.Name != "verification" || c.Path != "/" || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}
	if c.MaxAge <= 0 || c.MaxAge > 600 {
		t.Errorf("MaxAge = %d, want within (0, 600]", c.MaxAge)
	}

	got := s.Get(requestWith(c))
	if v, _ := got.Get("resetPasswordUsername"); v != "alice" {
		t.Errorf("resetPasswordUsername = %q, want alice", v)
	}
}

func TestStore_CommitWithoutExpiryIsSessionCookie(t *testing.T) {
	s := cookie.NewStore("session", mustCodec(t, secretA), cookie.Options{})
	sess := cookie.NewSession()
	sess.Set("sessionId", "abc")

	c, err := s.Commit(sess)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.MaxAge != 0 || !c.Expires.IsZero() {
		t.Errorf("want browser-session cookie, got MaxAge=%d Expires=%v", c.MaxAge, c.Expires)
	}

	exp := time.Now().Add(30 * 24 * time.Hour)
	c, err = s.Commit(sess, cookie.WithExpires(exp))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if c.Expires.Unix() != exp.Unix() {
		t.Errorf("Expires = %v, want %v", c.Expires, exp)
	}
}

func TestStore_Destroy(t *testing.T) {
	s := cookie.NewStore("verification", mustCodec(t, secretA), cookie.Options{})
	c := s.Destroy(cookie.NewSession())
	if c.Value != "" || c.MaxAge != -1 {
		t.Errorf("destroy cookie = %+v", c)
	}
}

func TestSession_Unset(t *testing.T) {
	sess := cookie.NewSession()
	sess.Set("a", "1")
	sess.Unset("a")
	if sess.Has("a") {
		t.Error("key still present after Unset")
	}
}
