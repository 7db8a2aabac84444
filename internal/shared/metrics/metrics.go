package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	workflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_workflow_transitions_total",
		Help: "Workflow stage transitions by source and target stage",
	}, []string{"from", "to"})

	workflowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_workflow_errors_total",
		Help: "Workflow operation failures by operation and error kind",
	}, []string{"operation", "kind"})

	exitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_workflow_exit_total",
		Help: "Exit guard resolutions (dispatched, prompted, stayed, left, leave_failed)",
	}, []string{"outcome"})

	artifactOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_artifact_operations_total",
		Help: "Artifact storage operations by operation, reason and result",
	}, []string{"operation", "reason", "result"})

	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "insights_upload_bytes",
		Help:    "Size of uploaded source documents in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB to 16MiB
	})

	filterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_filter_requests_total",
		Help: "Insight filter evaluations by view and whether constraints were active",
	}, []string{"view", "constrained"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insights_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveTransition counts a stage change.
func ObserveTransition(from, to string) {
	workflowTransitions.WithLabelValues(from, to).Inc()
}

// IncWorkflowError counts a failed workflow operation.
func IncWorkflowError(operation, kind string) {
	workflowErrors.WithLabelValues(operation, kind).Inc()
}

// IncExit counts an exit guard outcome.
func IncExit(outcome string) {
	exitRequests.WithLabelValues(outcome).Inc()
}

// ObserveArtifact counts an upload or delete against storage.
func ObserveArtifact(operation, reason string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	artifactOps.WithLabelValues(operation, reason, result).Inc()
}

// ObserveUploadBytes records a source document size.
func ObserveUploadBytes(n int64) {
	if n < 0 {
		n = 0
	}
	uploadBytes.Observe(float64(n))
}

// IncFilter counts a filter evaluation for view.
func IncFilter(view string, constrained bool) {
	filterRequests.WithLabelValues(view, strconv.FormatBool(constrained)).Inc()
}

// ObserveHTTP records a finished request. route should be the matched pattern, not the raw path.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
