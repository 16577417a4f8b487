package observability

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/portfolio-backend/internal/platform/envutil"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	compensations *CounterVec
	blobDeletes   *CounterVec
	sweepRemoved  *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide registry when METRICS_ENABLED is set; otherwise it returns nil.
// Every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered Metrics, mostly for tests.
func New() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("portfolio_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("portfolio_api_request_duration_seconds", "API request latency in seconds by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("portfolio_api_inflight_requests", "In-flight API requests."),

		aggregateOps:       NewCounterVec("portfolio_aggregate_operations_total", "Aggregate operations by name/status.", []string{"operation", "status"}),
		aggregateLatency:   NewHistogramVec("portfolio_aggregate_operation_duration_seconds", "Aggregate operation latency by name/status.", []string{"operation", "status"}, latency),
		aggregateConflicts: NewCounterVec("portfolio_aggregate_conflicts_total", "Aggregate operations rejected by a concurrency conflict.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("portfolio_aggregate_retries_total", "Aggregate operations that failed with a retryable error.", []string{"operation"}),

		compensations: NewCounterVec("portfolio_compensations_total", "Stored blobs removed after a failed operation, by outcome.", []string{"operation", "outcome"}),
		blobDeletes:   NewCounterVec("portfolio_blob_deletes_total", "Post-commit blob deletions by outcome.", []string{"operation", "outcome"}),
		sweepRemoved:  NewCounterVec("portfolio_sweeper_blobs_total", "Blobs examined by the orphan sweeper, by outcome.", []string{"outcome"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, pw := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.compensations, m.blobDeletes, m.sweepRemoved,
	} {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	name = strings.TrimSpace(name)
	m.aggregateOps.Inc(name, status)
	m.aggregateLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(strings.TrimSpace(name))
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(strings.TrimSpace(name))
}

// ObserveCompensation records one compensating blob delete; outcome is "deleted" or "failed".
func (m *Metrics) ObserveCompensation(operation, outcome string) {
	if m == nil {
		return
	}
	m.compensations.Inc(operation, outcome)
}

func (m *Metrics) ObserveBlobDelete(operation, outcome string) {
	if m == nil {
		return
	}
	m.blobDeletes.Inc(operation, outcome)
}

func (m *Metrics) ObserveSweep(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepRemoved.Add(float64(n), outcome)
}

// CompensationCount returns how many compensating deletes ended with outcome for operation.
func (m *Metrics) CompensationCount(operation, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.compensations.Value(operation, outcome)
}
