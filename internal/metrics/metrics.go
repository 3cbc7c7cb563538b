package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeQuota    = "quota"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Metrics holds the domain metrics of the upload pipelines and staging area
type Metrics struct {
	// Upload metrics
	UploadsTotal          *prometheus.CounterVec
	UploadBytesTotal      *prometheus.CounterVec
	QuotaRejectionsTotal  *prometheus.CounterVec
	UploadDurationSeconds *prometheus.HistogramVec

	// Staging metrics
	StagingSweptTotal      prometheus.Counter
	StagingDiskUsedPercent prometheus.Gauge

	// Health metrics
	HealthStatus *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// NewMetrics creates a Metrics instance registered with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebox_uploads_total",
				Help: "Total number of upload pipeline runs",
			},
			[]string{"kind", "outcome"},
		),
		UploadBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebox_upload_bytes_total",
				Help: "Total number of attachment bytes stored",
			},
			[]string{"kind"},
		),
		QuotaRejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunebox_quota_rejections_total",
				Help: "Uploads rejected by the daily quota of unverified artists",
			},
			[]string{"scope"},
		),
		UploadDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tunebox_upload_duration_seconds",
				Help:    "Duration of upload pipeline runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		StagingSweptTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tunebox_staging_swept_total",
				Help: "Stale staging files removed by the sweeper",
			},
		),
		StagingDiskUsedPercent: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tunebox_staging_disk_used_percent",
				Help: "Used space of the filesystem holding the staging directory",
			},
		),

		HealthStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tunebox_health_status",
				Help: "Health status of dependencies (1=ok, 0=down)",
			},
			[]string{"dependency"},
		),
	}
}

// Default returns the process-wide metrics registered with the default registry
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
		defaultMetrics.HealthStatus.WithLabelValues("db").Set(0)
	})
	return defaultMetrics
}

// ObserveUpload records the outcome of one pipeline run
func (m *Metrics) ObserveUpload(kind, outcome string, seconds float64, bytes int) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(kind, outcome).Inc()
	m.UploadDurationSeconds.WithLabelValues(kind).Observe(seconds)
	if outcome == OutcomeSuccess && bytes > 0 {
		m.UploadBytesTotal.WithLabelValues(kind).Add(float64(bytes))
	}
	if outcome == OutcomeQuota {
		m.QuotaRejectionsTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveSkipped records a batch item that was never started
func (m *Metrics) ObserveSkipped(kind string) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(kind, OutcomeSkipped).Inc()
}

// ObserveSweep records staging files removed by one sweep
func (m *Metrics) ObserveSweep(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.StagingSweptTotal.Add(float64(removed))
}

// SetStagingDiskUsage records how full the staging filesystem is
func (m *Metrics) SetStagingDiskUsage(percent float64) {
	if m == nil {
		return
	}
	m.StagingDiskUsedPercent.Set(percent)
}

// SetHealth records the status of a dependency
func (m *Metrics) SetHealth(dependency string, ok bool) {
	if m == nil {
		return
	}
	value := 0.0
	if ok {
		value = 1
	}
	m.HealthStatus.WithLabelValues(dependency).Set(value)
}
