package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	webhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_bot_webhooks_received_total",
		Help: "Total number of webhook events received",
	}, []string{"type"})

	webhooksIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_bot_webhooks_ignored_total",
		Help: "Total number of webhook events ignored",
	}, []string{"reason"})

	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_bot_messages_processed_total",
		Help: "Total number of messages processed",
	}, []string{"status", "role"})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_bot_commands_executed_total",
		Help: "Total number of slash commands executed",
	}, []string{"command"})

	completionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "whatsapp_bot_completion_request_duration_seconds",
		Help:    "Duration of completion API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	completionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_bot_completion_requests_total",
		Help: "Total number of completion API requests",
	}, []string{"model", "status"})

	fallbacksServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_bot_fallbacks_served_total",
		Help: "Total number of fallback responses served",
	}, []string{"mode"})

	rateLimitDenials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whatsapp_bot_rate_limit_denials_total",
		Help: "Total number of messages denied by rate limiting",
	})

	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whatsapp_bot_delivery_failures_total",
		Help: "Total number of failed outbound message deliveries",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whatsapp_bot_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whatsapp_bot_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	activeUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "whatsapp_bot_active_users",
		Help: "Number of identifiers with recorded usage",
	})
)

// Metrics provides methods to record metrics.
type Metrics struct{}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordWebhookReceived records a received webhook event.
func (m *Metrics) RecordWebhookReceived(eventType string) {
	webhooksReceived.WithLabelValues(eventType).Inc()
}

// RecordWebhookIgnored records an ignored webhook event with its reason.
func (m *Metrics) RecordWebhookIgnored(reason string) {
	webhooksIgnored.WithLabelValues(reason).Inc()
}

// RecordMessageProcessed records a processed message.
func (m *Metrics) RecordMessageProcessed(status, role string) {
	messagesProcessed.WithLabelValues(status, role).Inc()
}

// RecordCommandExecuted records an executed slash command.
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordCompletionRequest records a completion API request.
func (m *Metrics) RecordCompletionRequest(model, status string, duration time.Duration) {
	completionRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	completionRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordFallbackServed records a fallback response.
func (m *Metrics) RecordFallbackServed(mode string) {
	fallbacksServed.WithLabelValues(mode).Inc()
}

// RecordRateLimitDenial records a rate limit denial.
func (m *Metrics) RecordRateLimitDenial() {
	rateLimitDenials.Inc()
}

// RecordDeliveryFailure records a failed outbound send.
func (m *Metrics) RecordDeliveryFailure() {
	deliveryFailures.Inc()
}

// RecordCacheHit records a response cache hit.
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a response cache miss.
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// SetActiveUsers sets the number of identifiers with recorded usage.
func (m *Metrics) SetActiveUsers(count float64) {
	activeUsers.Set(count)
}

// StartMetricsServer starts the metrics HTTP server.
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
