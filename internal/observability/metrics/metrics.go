package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	storeOps       *prometheus.CounterVec
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	pageActions    *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "formstore",
			Name:      "operations_total",
			Help:      "Booking form store operations by backend, op and status",
		}, []string{"backend", "op", "status"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Clinic backend API calls",
		}, []string{"operation", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicbook",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of clinic backend API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		pageActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "flow",
			Name:      "actions_total",
			Help:      "Booking page actions by page, action and outcome",
		}, []string{"page", "action", "outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinicbook",
			Subsystem: "session",
			Name:      "active",
			Help:      "Booking sessions held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.storeOps, m.backendCalls, m.backendLatency, m.pageActions, m.activeSessions)
	return m
}

func (m *BookingMetrics) ObserveStore(backend, op, status string) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(backend, op, status).Inc()
}

func (m *BookingMetrics) ObserveBackendCall(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(operation, status).Inc()
	m.backendLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObservePageAction(page, action, outcome string) {
	if m == nil {
		return
	}
	m.pageActions.WithLabelValues(page, action, outcome).Inc()
}

func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
