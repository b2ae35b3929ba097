package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes recorded by Metrics.
const (
	refreshOK      = "ok"
	refreshFailed  = "failed"
	refreshSkipped = "skipped"
	refreshNoToken = "no_token"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
	coalesced prometheus.Counter
	retries   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg (when non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verzek",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Outbound API attempts by method and status class.",
		}, []string{"method", "class"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "verzek",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Outbound API attempt latency.",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verzek",
			Subsystem: "gateway",
			Name:      "token_refreshes_total",
			Help:      "Access-token refresh outcomes.",
		}, []string{"result"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verzek",
			Subsystem: "gateway",
			Name:      "token_refresh_coalesced_total",
			Help:      "Requests that waited on a refresh started by another request.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verzek",
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Requests re-sent after a token refresh.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.refreshes, m.coalesced, m.retries)
	}
	return m
}

func (m *Metrics) observeAttempt(method, class string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, class).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) observeCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
