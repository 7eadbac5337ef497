package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sharding and upload metrics
	ShardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acido_shards_total",
			Help: "Total number of input shards produced by the sharder",
		},
		[]string{"fleet"},
	)

	ArtifactUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acido_artifact_uploads_total",
			Help: "Total number of artifact store uploads by outcome",
		},
		[]string{"outcome"},
	)

	ArtifactUploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acido_artifact_upload_duration_seconds",
			Help:    "Artifact upload duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// Placement metrics
	GroupsPlannedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acido_groups_planned_total",
			Help: "Total number of container groups planned by region",
		},
		[]string{"region"},
	)

	// Provisioning metrics
	ContainerGroupsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acido_container_groups_total",
			Help: "Current number of container groups by state",
		},
		[]string{"state"},
	)

	ProvisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acido_provision_duration_seconds",
			Help:    "Container group provisioning duration in seconds by region",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"region"},
	)

	ProvisionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acido_provision_retries_total",
			Help: "Total number of region-swap retries triggered by quota errors",
		},
		[]string{"reason"},
	)

	// Polling / completion-detection metrics
	PollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acido_poll_cycles_total",
			Help: "Total number of log poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	PollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acido_poll_duration_seconds",
			Help:    "Time from provisioning to completion-sentinel detection",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
		[]string{"outcome"},
	)

	InstancesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acido_instances_total",
			Help: "Current number of container instances by status",
		},
		[]string{"status"},
	)

	// Teardown metrics
	TeardownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acido_teardowns_total",
			Help: "Total number of fleet/network-stack teardowns by outcome",
		},
		[]string{"resource", "outcome"},
	)

	TeardownDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acido_teardown_duration_seconds",
			Help:    "Teardown duration in seconds by resource kind",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"resource"},
	)

	// Remote Request Handler metrics
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acido_remote_requests_total",
			Help: "Total number of remote requests handled by operation and status",
		},
		[]string{"operation", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acido_remote_request_duration_seconds",
			Help:    "Remote request handling duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// FanOutInUse tracks concurrently in-flight operations against the
	// bounded worker pools (uploads, provisioning, polling).
	FanOutInUse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acido_fanout_in_use",
			Help: "Number of goroutines currently active in a bounded fan-out pool",
		},
		[]string{"pool"},
	)
)

func init() {
	prometheus.MustRegister(ShardsTotal)
	prometheus.MustRegister(ArtifactUploadsTotal)
	prometheus.MustRegister(ArtifactUploadDuration)
	prometheus.MustRegister(GroupsPlannedTotal)
	prometheus.MustRegister(ContainerGroupsTotal)
	prometheus.MustRegister(ProvisionDuration)
	prometheus.MustRegister(ProvisionRetriesTotal)
	prometheus.MustRegister(PollCyclesTotal)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(InstancesTotal)
	prometheus.MustRegister(TeardownsTotal)
	prometheus.MustRegister(TeardownDuration)
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteRequestDuration)
	prometheus.MustRegister(FanOutInUse)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
