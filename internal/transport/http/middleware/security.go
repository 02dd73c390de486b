package middleware

import "github.com/gin-gonic/gin"

// Security sets response headers for pages that carry credentials and
// one-time codes. Responses are no-store by default; handlers serving
// immutable content (user images) override Cache-Control. hsts is off for
// plain-HTTP local development.
func Security(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		// Keeps code and target query strings out of third-party Referers.
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		if hsts {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}
