package apperrors

import "sync"

// Record is a single logged error occurrence, stored on WorkflowState
// metadata so a completed or failed workflow carries its own error history.
type Record struct {
	Kind      Kind   `json:"kind"`
	Stage     string `json:"stage"`
	Iteration int    `json:"iteration"`
	Message   string `json:"message"`
}

// Tracker accumulates error records for a single workflow run and keeps a
// running count per (kind, stage) pair, the generalized replacement for
// the teacher orchestrator's per-agent duration/error summary.
type Tracker struct {
	mu      sync.Mutex
	records []Record
	counts  map[string]int
}

// NewTracker builds an empty error tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Record appends an error occurrence and bumps its (kind, stage) count.
func (t *Tracker) Record(err *AppError) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Record{
		Kind:      err.Kind,
		Stage:     err.Stage,
		Iteration: err.Iteration,
		Message:   err.Message,
	}
	t.records = append(t.records, rec)
	t.counts[string(err.Kind)+"/"+err.Stage]++
}

// Records returns a snapshot of all recorded errors in occurrence order.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// CountFor returns how many times (kind, stage) has been recorded so far.
func (t *Tracker) CountFor(kind Kind, stage string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[string(kind)+"/"+stage]
}

// Len returns the total number of recorded errors.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
