package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/accounts/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records latency and counts per route. Runs before Authenticate,
// so the actor is read after the chain has finished.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		code := c.Writer.Status()
		status := strconv.Itoa(code)
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method
		actor := "anonymous"
		if c.GetString(UserIDKey) != "" {
			actor = "user"
		}

		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status, actor).Inc()
		if method == http.MethodPost && code == http.StatusBadRequest {
			metrics.FormRejectionsTotal.WithLabelValues(path).Inc()
		}
	}
}
