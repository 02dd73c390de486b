package handler_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
)

func newResourceEngine(t *testing.T, images *fakeProfile) (*gin.Engine, *handler.Cookies) {
	t.Helper()
	cookies := newCookies(t)
	h := handler.NewResourceHandler(images, cookies, discardLogger())
	toast := handler.NewToastHandler(cookies)

	r := newEngine()
	r.POST("/resources/theme-switch", h.ThemeSwitch)
	r.GET("/resources/user-images/:id", h.UserImage)
	r.GET("/resources/toast", toast.Pop)
	return r, cookies
}

func TestThemeSwitch(t *testing.T) {
	tests := []struct {
		name       string
		values     url.Values
		wantStatus int
		wantValue  string
		wantMaxAge int
	}{
		{"dark", url.Values{"theme": {"dark"}}, http.StatusOK, "dark", 365 * 24 * 60 * 60},
		{"light with redirect", url.Values{"theme": {"light"}, "redirectTo": {"/settings/profile"}}, http.StatusFound, "light", 365 * 24 * 60 * 60},
		{"system clears", url.Values{"theme": {"system"}}, http.StatusOK, "", -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newResourceEngine(t, &fakeProfile{})

			w := serve(r, postForm("/resources/theme-switch", tc.values))

			assertStatus(t, w, tc.wantStatus)
			c := responseCookie(w, "theme")
			if c == nil {
				t.Fatal("no theme cookie")
			}
			if c.Value != tc.wantValue || c.MaxAge != tc.wantMaxAge {
				t.Errorf("theme cookie = {%q, max-age %d}, want {%q, %d}", c.Value, c.MaxAge, tc.wantValue, tc.wantMaxAge)
			}
		})
	}
}

func TestThemeSwitch_RejectsUnknownTheme(t *testing.T) {
	r, _ := newResourceEngine(t, &fakeProfile{})
	w := serve(r, postForm("/resources/theme-switch", url.Values{"theme": {"neon"}}))

	assertStatus(t, w, http.StatusBadRequest)
	if responseCookie(w, "theme") != nil {
		t.Error("theme cookie set for an invalid theme")
	}
}

func TestThemeSwitch_SanitisesRedirect(t *testing.T) {
	r, _ := newResourceEngine(t, &fakeProfile{})
	w := serve(r, postForm("/resources/theme-switch", url.Values{"theme": {"dark"}, "redirectTo": {"//evil.test"}}))

	assertRedirect(t, w, "/")
}

func TestUserImage(t *testing.T) {
	images := &fakeProfile{image: func(_ context.Context, id string) (*domain.UserImage, error) {
		if id != "img-1" {
			return nil, domain.ErrImageNotFound
		}
		return &domain.UserImage{ID: id, ContentType: "image/png", Blob: []byte("png-bytes")}, nil
	}}
	r, _ := newResourceEngine(t, images)

	w := serve(r, get("/resources/user-images/img-1"))
	assertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=31536000, immutable" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if w.Body.String() != "png-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}

	assertStatus(t, serve(r, get("/resources/user-images/missing")), http.StatusNotFound)
}

func TestToastPop(t *testing.T) {
	r, cookies := newResourceEngine(t, &fakeProfile{})

	w := serve(r, get("/resources/toast"))
	assertStatus(t, w, http.StatusOK)
	if w.Body.String() != `{"toast":null}` {
		t.Errorf("empty body = %s", w.Body.String())
	}

	ck := commitCookie(t, cookies.Toast, map[string]string{"type": "success", "title": "Welcome", "description": "Thanks for signing up!"})
	w = serve(r, get("/resources/toast", ck))
	assertStatus(t, w, http.StatusOK)
	want := `{"toast":{"type":"success","title":"Welcome","description":"Thanks for signing up!"}}`
	if w.Body.String() != want {
		t.Errorf("body = %s, want %s", w.Body.String(), want)
	}
	assertDestroyed(t, w, "toast")
}
