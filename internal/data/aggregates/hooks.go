package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/portfolio-backend/internal/observability"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	// IncCompensation counts one undo of a stored blob; outcome is "deleted", "failed" or "kept".
	IncCompensation(name, outcome string)
	// IncBlobDelete counts one post-commit blob removal; outcome is "deleted", "failed" or "kept".
	IncBlobDelete(name, outcome string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncCompensation(string, string)                 {}
func (noopHooks) IncBlobDelete(string, string)                   {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates aggregate hooks backed by observability metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncCompensation(name, outcome string) {
	h.metrics.ObserveCompensation(strings.TrimSpace(name), outcome)
}

func (h *observabilityHooks) IncBlobDelete(name, outcome string) {
	h.metrics.ObserveBlobDelete(strings.TrimSpace(name), outcome)
}
