package prometheus

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnhub_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnhub_register_total",
			Help: "Total number of user registrations",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Authentication error counter
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "invalid_token", "expired_token", "principal_not_found", etc.
	)

	// Authorization denial counter
	AuthzDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_authz_denied_total",
			Help: "Total number of authorization denials",
		},
		[]string{"capability"},
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"},
	)

	// Tenant context missing on a route that requires it
	TenantContextMissingCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnhub_tenant_context_missing_total",
			Help: "Total number of requests rejected for missing tenant context",
		},
	)

	// Bypass sessions opened by system-wide administrators
	BypassSessionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnhub_bypass_sessions_total",
			Help: "Total number of database sessions bound with tenant-isolation bypass",
		},
	)

	// Object-level invariant violations. Any increment is a server-side
	// defect worth alerting on.
	InvariantViolationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_invariant_violations_total",
			Help: "Total number of tenant-isolation invariant violations",
		},
		[]string{"type"}, // "missing_tenant_id", "tenant_mismatch", "session_unbound"
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnhub_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learnhub_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	ActiveTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learnhub_active_tenants",
			Help: "Number of currently active tenants",
		},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(AuthzDeniedCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(TenantContextMissingCounter)
	prometheus.MustRegister(BypassSessionCounter)
	prometheus.MustRegister(InvariantViolationCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(ActiveTenantsGauge)
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordAuthzDenied increments the authorization denial counter
func RecordAuthzDenied(capability string) {
	AuthzDeniedCounter.WithLabelValues(capability).Inc()
}

// RecordTenantOperation increments the tenant operation counter
func RecordTenantOperation(operation string) {
	TenantOperationCounter.WithLabelValues(operation).Inc()
}

// RecordInvariantViolation increments the invariant violation counter
func RecordInvariantViolation(violationType string) {
	InvariantViolationCounter.WithLabelValues(violationType).Inc()
}

// TrackDBOperation returns a function that records the duration of a database
// operation when called. Use with defer:
//
//	defer prometheus.TrackDBOperation("query")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware returns an Echo middleware that records request metrics
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			endpoint := c.Path()
			method := c.Request().Method

			HTTPRequestCounter.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
			RequestDuration.WithLabelValues(endpoint, method, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns the Prometheus metrics HTTP handler wrapped for Echo
func Handler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
