package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusCollector struct {
	leaseAcquires  *prometheus.CounterVec
	leaseReleases  *prometheus.CounterVec
	leasesReclaims prometheus.Counter

	transitions  *prometheus.CounterVec
	transactions *prometheus.CounterVec
	settlement   *prometheus.HistogramVec
	screening    *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	publishes      *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec
}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		leaseAcquires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lease_acquire_total",
				Help:      "Lease acquisition attempts per resource kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		leaseReleases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lease_release_total",
				Help:      "Lease release attempts per resource kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		leasesReclaims: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lease_reclaimed_total",
				Help:      "Expired leases force-released by the sweeper",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session state transitions per channel and target state",
			},
			[]string{"channel", "state"},
		),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_status_total",
				Help:      "Transaction status changes per type and status",
			},
			[]string{"type", "status"},
		),
		settlement: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "settlement_duration_seconds",
				Help:      "Duration of the atomic balance settlement",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		screening: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aml_screening_duration_seconds",
				Help:      "Duration of AML screening calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"flagged"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests per method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency per method and route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Ledger events published per topic and result",
			},
			[]string{"topic", "result"},
		),
		publishLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_publish_duration_seconds",
				Help:      "Latency of ledger event publishing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
	}
}

// Register registers every metric with reg.
func (pc *PrometheusCollector) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.leaseAcquires,
		pc.leaseReleases,
		pc.leasesReclaims,
		pc.transitions,
		pc.transactions,
		pc.settlement,
		pc.screening,
		pc.httpRequests,
		pc.httpLatency,
		pc.publishes,
		pc.publishLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (pc *PrometheusCollector) RecordLeaseAcquire(kind string, outcome string) {
	pc.leaseAcquires.WithLabelValues(kind, outcome).Inc()
}

func (pc *PrometheusCollector) RecordLeaseRelease(kind string, outcome string) {
	pc.leaseReleases.WithLabelValues(kind, outcome).Inc()
}

func (pc *PrometheusCollector) RecordLeasesReclaimed(count int) {
	if count > 0 {
		pc.leasesReclaims.Add(float64(count))
	}
}

func (pc *PrometheusCollector) RecordTransition(channel string, state string) {
	pc.transitions.WithLabelValues(channel, state).Inc()
}

func (pc *PrometheusCollector) RecordTransaction(txType string, status string) {
	pc.transactions.WithLabelValues(txType, status).Inc()
}

func (pc *PrometheusCollector) RecordSettlement(outcome string, duration time.Duration) {
	pc.settlement.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordScreening(flagged bool, duration time.Duration) {
	pc.screening.WithLabelValues(strconv.FormatBool(flagged)).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordHTTPRequest(method string, route string, status int, duration time.Duration) {
	pc.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pc.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordPublish(topic string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	pc.publishes.WithLabelValues(topic, result).Inc()
	pc.publishLatency.WithLabelValues(topic).Observe(duration.Seconds())
}

var _ Collector = (*PrometheusCollector)(nil)
