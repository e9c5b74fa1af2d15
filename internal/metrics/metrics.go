package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for fence evaluation and the HTTP surface
var (
	AlarmsRaisedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fence_alarms_raised_total",
			Help: "Total number of fence alarms created",
		},
		[]string{"alarm_type"},
	)

	AlarmsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fence_alarms_suppressed_total",
			Help: "Total number of violations suppressed by an existing pending alarm",
		},
	)

	EvaluationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fence_evaluation_errors_total",
			Help: "Total number of errors logged during fence evaluation",
		},
		[]string{"kind"},
	)

	EvaluationPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fence_evaluation_pass_duration_seconds",
			Help:    "Duration of reactive and bulk fence evaluation passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Evaluation error kinds
const (
	ErrKindGeometry   = "geometry"
	ErrKindRegion     = "region"
	ErrKindTimeWindow = "time_window"
	ErrKindStoreRead  = "store_read"
	ErrKindAlarmWrite = "alarm_write"
	ErrKindCountWrite = "count_write"
)

// Evaluation pass modes
const (
	ModeLocationUpdate = "location_update"
	ModeFenceChanged   = "fence_changed"
	ModeRecompute      = "recompute"
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(AlarmsRaisedTotal)
		prometheus.MustRegister(AlarmsSuppressedTotal)
		prometheus.MustRegister(EvaluationErrorsTotal)
		prometheus.MustRegister(EvaluationPassDuration)
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
