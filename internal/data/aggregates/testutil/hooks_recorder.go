package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/portfolio-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations    []OperationEvent
	Conflicts     []string
	Retries       []string
	Compensations []OutcomeEvent
	BlobDeletes   []OutcomeEvent
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

type OutcomeEvent struct {
	Name    string
	Outcome string
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{
		Name:     name,
		Status:   status,
		Duration: dur,
	})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

func (h *HooksRecorder) IncCompensation(name, outcome string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Compensations = append(h.Compensations, OutcomeEvent{Name: name, Outcome: outcome})
}

func (h *HooksRecorder) IncBlobDelete(name, outcome string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.BlobDeletes = append(h.BlobDeletes, OutcomeEvent{Name: name, Outcome: outcome})
}

// LastOperation returns the most recent operation event, or the zero value.
func (h *HooksRecorder) LastOperation() OperationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Operations) == 0 {
		return OperationEvent{}
	}
	return h.Operations[len(h.Operations)-1]
}

// CountOutcome counts events in evs with the given outcome.
func CountOutcome(evs []OutcomeEvent, outcome string) int {
	n := 0
	for _, e := range evs {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}
