package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soco_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soco_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soco_database_operations_total",
			Help: "Total service-level database operations",
		},
		[]string{"operation", "entity", "result"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soco_database_operation_duration_seconds",
			Help:    "Service-level database operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	LikesToggled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soco_post_likes_toggled_total",
			Help: "Like toggles by resulting state",
		},
		[]string{"action"},
	)

	CommentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soco_post_comments_created_total",
			Help: "Comments created, split into top-level comments and replies",
		},
		[]string{"kind"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soco_uploads_total",
			Help: "Media uploads by kind and result",
		},
		[]string{"kind", "result"},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soco_auth_events_total",
			Help: "Registrations and logins by result",
		},
		[]string{"event", "result"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soco_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soco_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

func RecordHttpRequest(method, route, status string, duration time.Duration) {
	HttpRequestsTotal.WithLabelValues(method, route, status).Inc()
	HttpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordDatabaseOperation(operation, entity string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DatabaseOperationsTotal.WithLabelValues(operation, entity, result).Inc()
	DatabaseOperationDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
}

func RecordLikeToggle(liked bool) {
	if liked {
		LikesToggled.WithLabelValues("like").Inc()
		return
	}
	LikesToggled.WithLabelValues("unlike").Inc()
}

func RecordComment(isReply bool) {
	if isReply {
		CommentsCreated.WithLabelValues("reply").Inc()
		return
	}
	CommentsCreated.WithLabelValues("comment").Inc()
}

func RecordUpload(kind, result string) {
	Uploads.WithLabelValues(kind, result).Inc()
}

func RecordAuthEvent(event string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	AuthEvents.WithLabelValues(event, result).Inc()
}

func RecordRateLimited(route string) {
	RateLimited.WithLabelValues(route).Inc()
}

func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
