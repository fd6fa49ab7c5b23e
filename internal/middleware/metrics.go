package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for console gateway monitoring.
// All metrics are registered in the default Prometheus registry and
// exposed via the /metrics endpoint.

var (
	// httpRequestsTotal counts all HTTP requests by method, path, and status.
	//
	// Labels: method (GET, POST, etc.), path (/api/chat/send), status (200, 404, 500)
	// Type: Counter
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures request processing time for latency
	// analysis (P50, P95, P99).
	//
	// Labels: method, path
	// Type: Histogram
	// Buckets: Default Prometheus buckets (0.005s to 10s)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpResponseSize tracks response body sizes for bandwidth monitoring.
	//
	// Labels: method, path
	// Type: Histogram
	// Buckets: Exponential from 100 bytes to 100 MB
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// backendCallsTotal counts proxied backend API calls by endpoint and
	// HTTP status (0 for transport failures).
	//
	// Labels: method, endpoint, status
	// Type: Counter
	backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Total number of proxied backend API calls",
		},
		[]string{"method", "endpoint", "status"},
	)

	// backendCallDuration measures proxied backend call round-trip time.
	//
	// Labels: method, endpoint
	// Type: Histogram
	backendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_call_duration_seconds",
			Help:    "Backend API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// authAttemptsTotal counts operator authentication attempts by result.
	//
	// Labels: result (success, failed)
	// Type: Counter
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_auth_attempts_total",
			Help: "Total number of operator authentication attempts",
		},
		[]string{"result"},
	)

	// chatSendsTotal counts AI chat turns by result.
	//
	// Labels: result (success, rejected, backend_error)
	// Type: Counter
	chatSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_chat_sends_total",
			Help: "Total number of AI chat sends",
		},
		[]string{"result"},
	)

	// checkoutsTotal counts acquisition attempts by result.
	//
	// Labels: result (success, empty_cart, in_flight, backend_error)
	// Type: Counter
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_checkouts_total",
			Help: "Total number of checkout attempts",
		},
		[]string{"result"},
	)

	// viewTransitionsTotal counts accepted view navigations.
	//
	// Labels: view
	// Type: Counter
	viewTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_view_transitions_total",
			Help: "Total number of accepted view transitions",
		},
		[]string{"view"},
	)

	// cartItems tracks the current carrier item count.
	//
	// Type: Gauge (can go up or down)
	cartItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_cart_items",
			Help: "Current number of items in the secure carrier",
		},
	)

	// storeOpsTotal counts terminal store operations by operation and status.
	//
	// Labels: operation (GET, SET, DEL), status (success, error)
	// Type: Counter
	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_ops_total",
			Help: "Total number of terminal store operations",
		},
		[]string{"operation", "status"},
	)

	// storeOpDuration measures terminal store operation execution time.
	//
	// Labels: operation
	// Type: Histogram
	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Terminal store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// init registers all metrics with the Prometheus default registry.
// Panics if any metric name conflicts with existing registrations.
func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpResponseSize)
	prometheus.MustRegister(backendCallsTotal)
	prometheus.MustRegister(backendCallDuration)
	prometheus.MustRegister(authAttemptsTotal)
	prometheus.MustRegister(chatSendsTotal)
	prometheus.MustRegister(checkoutsTotal)
	prometheus.MustRegister(viewTransitionsTotal)
	prometheus.MustRegister(cartItems)
	prometheus.MustRegister(storeOpsTotal)
	prometheus.MustRegister(storeOpDuration)
}

// Metrics creates middleware for collecting HTTP metrics.
// Records request count, duration, and response size for every request.
//
// Example Prometheus queries:
//
//	# Request rate by endpoint
//	rate(http_requests_total[5m])
//
//	# Error rate percentage
//	sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m]))
//
//	# P95 latency
//	histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))
//
// Usage:
//
//	r.Use(middleware.Metrics())
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.Status())

			httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			httpResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(ww.BytesWritten()))
		})
	}
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
// Exposes all registered metrics in Prometheus text format for scraping.
//
// Usage:
//
//	r.Get("/metrics", middleware.MetricsHandler().ServeHTTP)
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordBackendCall records one proxied backend API call. Wired into the
// API client as its call recorder; a status of 0 marks a transport
// failure.
func RecordBackendCall(method, endpoint string, status int, duration time.Duration) {
	backendCallsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	backendCallDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementAuthAttempts increments the authentication attempts counter.
// Call this in the login and register handlers.
//
// Example:
//
//	if _, err := console.Login(ctx, req.Username, req.Password); err != nil {
//	    middleware.IncrementAuthAttempts("failed")
//	    return
//	}
//	middleware.IncrementAuthAttempts("success")
func IncrementAuthAttempts(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// IncrementChatSends increments the chat send counter.
func IncrementChatSends(result string) {
	chatSendsTotal.WithLabelValues(result).Inc()
}

// IncrementCheckouts increments the checkout counter.
func IncrementCheckouts(result string) {
	checkoutsTotal.WithLabelValues(result).Inc()
}

// IncrementViewTransitions increments the view transition counter.
func IncrementViewTransitions(view string) {
	viewTransitionsTotal.WithLabelValues(view).Inc()
}

// SetCartItems sets the carrier item gauge. Call after every cart
// mutation.
func SetCartItems(count float64) {
	cartItems.Set(count)
}

// RecordStoreOp records one terminal store operation, both count and
// duration. Installed as the TerminalStore operation recorder at startup:
//
//	store.SetOpRecorder(middleware.RecordStoreOp)
func RecordStoreOp(operation, status string, duration time.Duration) {
	storeOpsTotal.WithLabelValues(operation, status).Inc()
	storeOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
