package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "togo_freelance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "togo_freelance",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	GuardDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "togo_freelance",
			Subsystem: "guard",
			Name:      "denials_total",
			Help:      "Requests rejected by a guard, by reason code.",
		},
		[]string{"reason"},
	)

	ApplicationsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "togo_freelance",
			Subsystem: "projects",
			Name:      "applications_accepted_total",
			Help:      "Applications accepted by companies.",
		},
	)

	ReviewsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "togo_freelance",
			Subsystem: "reviews",
			Name:      "created_total",
			Help:      "Reviews written for completed projects.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		GuardDenials,
		ApplicationsAccepted,
		ReviewsCreated,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
