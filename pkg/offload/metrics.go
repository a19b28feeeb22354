package offload

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultCreated   = "created"
	ResultExisting  = "existing"
	ResultCollision = "collision"
	ResultCorrupt   = "corrupt"
	ResultFull      = "full"
	ResultClosed    = "closed"
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultOK        = "ok"
	ResultError     = "error"
)

// LabelResult is the outcome label shared by the registry counters.
const LabelResult = "result"

// Metrics provides Prometheus metrics for the token registry. All methods
// are safe on a nil receiver.
type Metrics struct {
	storeTotal   *prometheus.CounterVec
	fetchTotal   *prometheus.CounterVec
	releaseTotal *prometheus.CounterVec
	active       prometheus.Gauge
}

// NewMetrics creates and registers registry metrics.
// If registry is nil, metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		storeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smboffload",
				Subsystem: "tokens",
				Name:      "store_total",
				Help:      "Total number of token store attempts by result",
			},
			[]string{LabelResult},
		),
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smboffload",
				Subsystem: "tokens",
				Name:      "fetch_total",
				Help:      "Total number of token fetch attempts by result",
			},
			[]string{LabelResult},
		),
		releaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smboffload",
				Subsystem: "tokens",
				Name:      "release_total",
				Help:      "Total number of token releases on handle close by result",
			},
			[]string{LabelResult},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "smboffload",
				Subsystem: "tokens",
				Name:      "active",
				Help:      "Number of tokens currently bound to an open handle",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.storeTotal,
			m.fetchTotal,
			m.releaseTotal,
			m.active,
		)
	}

	return m
}

// ObserveStore records the outcome of a Store call.
func (m *Metrics) ObserveStore(result string) {
	if m == nil {
		return
	}
	m.storeTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records the outcome of a Fetch call.
func (m *Metrics) ObserveFetch(result string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(result).Inc()
}

// ObserveRelease records the outcome of a link release.
func (m *Metrics) ObserveRelease(result string) {
	if m == nil {
		return
	}
	m.releaseTotal.WithLabelValues(result).Inc()
}

// SetActive sets the number of live bindings.
func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}
