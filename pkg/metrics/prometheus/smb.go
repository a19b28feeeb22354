// Package prometheus implements pkg/metrics interfaces with Prometheus
// collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/smboffload/pkg/metrics"
)

// smbMetrics is the Prometheus implementation of metrics.SMBMetrics.
type smbMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bytesCopied     *prometheus.CounterVec
	openFiles       prometheus.Gauge
}

var _ metrics.SMBMetrics = (*smbMetrics)(nil)

// NewSMBMetrics creates SMB request metrics registered with reg.
//
// Returns nil if reg is nil, which disables request metrics.
func NewSMBMetrics(reg prometheus.Registerer) metrics.SMBMetrics {
	if reg == nil {
		return nil
	}

	return &smbMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "smboffload_smb_requests_total",
				Help: "Total number of SMB2 requests by command, fsctl and status",
			},
			[]string{"command", "fsctl", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smboffload_smb_request_duration_seconds",
				Help:    "Duration of SMB2 requests by command and fsctl",
				Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10), // 50us .. ~13s
			},
			[]string{"command", "fsctl"},
		),
		bytesCopied: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "smboffload_smb_bytes_copied_total",
				Help: "Total bytes moved by server-side copy by fsctl",
			},
			[]string{"fsctl"},
		),
		openFiles: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "smboffload_smb_open_files",
				Help: "Number of open file handles",
			},
		),
	}
}

func (m *smbMetrics) RecordRequest(command, fsctl string, duration time.Duration, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(command, fsctl, status).Inc()
	m.requestDuration.WithLabelValues(command, fsctl).Observe(duration.Seconds())
}

func (m *smbMetrics) RecordBytesCopied(fsctl string, bytes uint64) {
	if m == nil {
		return
	}
	m.bytesCopied.WithLabelValues(fsctl).Add(float64(bytes))
}

func (m *smbMetrics) SetOpenFiles(count int) {
	if m == nil {
		return
	}
	m.openFiles.Set(float64(count))
}
