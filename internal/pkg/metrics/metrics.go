package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "talkcoach"

// Metrics holds every collector the chat core reports into. The registry is
// injected at construction so nothing in the core touches a global registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	RetrievalDuration   prometheus.Histogram
	GenerationDuration  prometheus.Histogram
	TurnDuration        prometheus.Histogram
	GenerationCalls     *prometheus.CounterVec
	FeedbackTotal       *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registry: reg,
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RetrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of semantic search retrieval calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of completion provider calls in seconds.",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_turn_duration_seconds",
			Help:      "End-to-end duration of one message cycle in seconds.",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		GenerationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Completion provider calls by outcome.",
		}, []string{"outcome"}),
		FeedbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Feedback events by verdict.",
		}, []string{"verdict"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Currently connected chat sessions.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestDuration,
		m.RetrievalDuration,
		m.GenerationDuration,
		m.TurnDuration,
		m.GenerationCalls,
		m.FeedbackTotal,
		m.ActiveSessions,
	)
	return m
}

// HTTPMiddleware records request durations for every route.
func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		m.HTTPRequestDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
