package metrics

import (
	"net/http"

	"github.com/ErlanBelekov/accounts/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Verification metrics

	VerificationsPreparedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "verifications_prepared_total",
		Help:      "Total one-time codes issued, by verification type.",
	}, []string{"type"})

	VerificationsCheckedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "verifications_checked_total",
		Help:      "Total one-time code checks, by verification type and result.",
	}, []string{"type", "result"})

	// Auth metrics

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "logins_total",
		Help:      "Total login attempts, by outcome.",
	}, []string{"outcome"})

	SignupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "signups_total",
		Help:      "Total accounts created, by method (password or provider name).",
	}, []string{"method"})

	// Janitor metrics

	JanitorPurgedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "janitor_purged_total",
		Help:      "Total expired rows removed by the janitor.",
	}, []string{"kind"})

	JanitorCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "janitor_cycle_duration_seconds",
		Help:      "Time taken for one janitor cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests, by signed-in or anonymous actor.",
	}, []string{"method", "path", "status", "actor"})

	FormRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "form_rejections_total",
		Help:      "Submissions answered with a validation error, by route.",
	}, []string{"path"})
)

func Register() {
	prometheus.MustRegister(
		VerificationsPreparedTotal,
		VerificationsCheckedTotal,
		LoginsTotal,
		SignupsTotal,
		JanitorPurgedTotal,
		JanitorCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
		FormRejectionsTotal,
	)
}

// NewServer serves /metrics and the health probes on addr.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
	return &http.Server{Addr: addr, Handler: mux}
}
