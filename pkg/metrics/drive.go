package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DriveMetrics provides observability for drive service operations.
//
// This interface is optional. Passing nil to the drive service selects a
// no-op implementation with zero overhead.
type DriveMetrics interface {
	// RecordUpload records a completed upload attempt.
	//
	// Parameters:
	//   - outcome: "committed", "deduplicated", or the rejection kind
	//     (e.g. "quota_exceeded", "payload_too_large")
	//   - bytes: Declared payload size
	//   - duration: Time from receipt to commit or rejection
	RecordUpload(outcome string, bytes int64, duration time.Duration)

	// RecordDownload records a completed download stream.
	//
	// Parameters:
	//   - bytes: Bytes streamed
	//   - duration: Time to first byte plus streaming time
	//   - err: Error if the download failed, nil on success
	RecordDownload(bytes int64, duration time.Duration, err error)

	// RecordIntegrityFault counts catalog rows whose blob turned out to
	// be missing. These should be zero; any increment is a server fault
	// worth alerting on.
	RecordIntegrityFault()

	// RecordSweep records a completed garbage collection pass.
	//
	// Parameters:
	//   - removed: Orphan blobs reclaimed
	//   - failed: Orphans that could not be removed
	//   - duration: Wall time of the pass
	RecordSweep(removed, failed int, duration time.Duration)
}

// driveMetrics is the Prometheus implementation of DriveMetrics.
type driveMetrics struct {
	uploadsTotal    *prometheus.CounterVec
	uploadBytes     *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	downloadsTotal  *prometheus.CounterVec
	downloadBytes   prometheus.Counter
	integrityFaults prometheus.Counter
	sweepRemoved    prometheus.Counter
	sweepFailed     prometheus.Counter
	sweepDuration   prometheus.Histogram
}

// NewDriveMetrics creates a Prometheus-backed DriveMetrics instance, or a
// no-op one when the registry is not initialized.
func NewDriveMetrics() DriveMetrics {
	if !IsEnabled() {
		return &noopDriveMetrics{}
	}

	reg := GetRegistry()

	return &driveMetrics{
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "drivevault_uploads_total",
				Help: "Total upload attempts by outcome",
			},
			[]string{"outcome"},
		),
		uploadBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "drivevault_upload_bytes_total",
				Help: "Total declared bytes by upload outcome",
			},
			[]string{"outcome"},
		),
		uploadDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "drivevault_upload_duration_seconds",
				Help:    "Duration of upload processing in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		downloadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "drivevault_downloads_total",
				Help: "Total download streams by status",
			},
			[]string{"status"},
		),
		downloadBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "drivevault_download_bytes_total",
				Help: "Total bytes streamed to readers",
			},
		),
		integrityFaults: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "drivevault_integrity_faults_total",
				Help: "Catalog rows found pointing at missing blobs",
			},
		),
		sweepRemoved: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "drivevault_gc_blobs_removed_total",
				Help: "Orphan blobs reclaimed by the collector",
			},
		),
		sweepFailed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "drivevault_gc_blob_failures_total",
				Help: "Orphan blobs the collector failed to remove",
			},
		),
		sweepDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "drivevault_gc_sweep_duration_seconds",
				Help:    "Duration of garbage collection passes in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
	}
}

func (m *driveMetrics) RecordUpload(outcome string, bytes int64, duration time.Duration) {
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	m.uploadBytes.WithLabelValues(outcome).Add(float64(bytes))
	m.uploadDuration.Observe(duration.Seconds())
}

func (m *driveMetrics) RecordDownload(bytes int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.downloadsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.downloadBytes.Add(float64(bytes))
	}
}

func (m *driveMetrics) RecordIntegrityFault() {
	m.integrityFaults.Inc()
}

func (m *driveMetrics) RecordSweep(removed, failed int, duration time.Duration) {
	m.sweepRemoved.Add(float64(removed))
	m.sweepFailed.Add(float64(failed))
	m.sweepDuration.Observe(duration.Seconds())
}

// noopDriveMetrics is the zero-overhead implementation used when metrics
// are disabled.
type noopDriveMetrics struct{}

func (*noopDriveMetrics) RecordUpload(string, int64, time.Duration)  {}
func (*noopDriveMetrics) RecordDownload(int64, time.Duration, error) {}
func (*noopDriveMetrics) RecordIntegrityFault()                      {}
func (*noopDriveMetrics) RecordSweep(int, int, time.Duration)        {}
