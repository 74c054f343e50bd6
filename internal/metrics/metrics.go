package metrics

import (
	"net/http"
	"time"

	"checkout-service/internal/reservation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StatsSource interface {
	Stats() reservation.Stats
}

type Metrics struct {
	registry *prometheus.Registry

	commits        *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec
	eventFailures  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_commits_total",
				Help: "Order commit attempts by outcome.",
			},
			[]string{"outcome"},
		),
		commitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "order_commit_duration_seconds",
				Help:    "Duration of order commit attempts in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		eventFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_event_publish_failed_total",
				Help: "Count of order event publish failures.",
			},
			[]string{"event"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(
		m.commits,
		m.commitDuration,
		m.eventFailures,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCommit реализует service.CommitObserver.
func (m *Metrics) ObserveCommit(outcome string, elapsed time.Duration) {
	m.commits.WithLabelValues(outcome).Inc()
	m.commitDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) EventPublishFailed(event string) {
	m.eventFailures.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}

// RegisterTracker выставляет счётчики трекера резервов как gauge.
func (m *Metrics) RegisterTracker(src StatsSource) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "reservations_active",
			Help: "Active soft holds across all sessions.",
		}, func() float64 { return float64(src.Stats().TotalReservations) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "reservation_sessions_active",
			Help: "Sessions holding at least one item.",
		}, func() float64 { return float64(src.Stats().UniqueSessions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "reservation_items_active",
			Help: "Items held by at least one session.",
		}, func() float64 { return float64(src.Stats().UniqueItems) }),
	)
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
