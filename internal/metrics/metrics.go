package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vuelavuela",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vuelavuela",
			Name:      "notifications_total",
			Help:      "Notification attempts by channel and outcome.",
		},
		[]string{"channel", "status"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vuelavuela",
			Name:      "lifecycle_transitions_total",
			Help:      "Request/quote lifecycle transitions by entity and new status.",
		},
		[]string{"entity", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, notifications, transitions)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncNotification counts one notification attempt.
func IncNotification(channel, status string) {
	notifications.WithLabelValues(channel, status).Inc()
}

// IncTransition counts one lifecycle transition.
func IncTransition(entity, status string) {
	transitions.WithLabelValues(entity, status).Inc()
}
