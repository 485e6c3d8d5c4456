package async

import "sync"

// ProgressStep is a named phase of a multi-phase operation
type ProgressStep struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	IsCompleted  bool   `json:"is_completed"`
	IsInProgress bool   `json:"is_in_progress"`
}

// StepTracker tracks phase-level progress through an ordered sequence of
// steps. A tracker is created at the start of a multi-phase operation,
// advanced with UpdateProgress, frozen on success and left
// partially-completed on failure.
type StepTracker struct {
	mu         sync.Mutex
	steps      []ProgressStep
	failed     bool
	failReason string
	listeners  []func(steps []ProgressStep)
}

// NewStepTracker creates a tracker over the given step titles
func NewStepTracker(steps []ProgressStep) *StepTracker {
	copied := make([]ProgressStep, len(steps))
	copy(copied, steps)
	return &StepTracker{steps: copied}
}

// OnChange registers a listener invoked with a snapshot after every update
func (t *StepTracker) OnChange(fn func(steps []ProgressStep)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// UpdateProgress marks every step before index completed and the step at
// index in-progress, updating its description with message. Out-of-range
// indexes are ignored.
func (t *StepTracker) UpdateProgress(index int, message string) {
	t.mu.Lock()
	if index < 0 || index >= len(t.steps) {
		t.mu.Unlock()
		return
	}
	for i := range t.steps {
		switch {
		case i < index:
			t.steps[i].IsCompleted = true
			t.steps[i].IsInProgress = false
		case i == index:
			t.steps[i].IsCompleted = false
			t.steps[i].IsInProgress = true
			if message != "" {
				t.steps[i].Description = message
			}
		default:
			t.steps[i].IsCompleted = false
			t.steps[i].IsInProgress = false
		}
	}
	t.notifyLocked()
}

// CompleteOperation marks all steps completed
func (t *StepTracker) CompleteOperation() {
	t.mu.Lock()
	for i := range t.steps {
		t.steps[i].IsCompleted = true
		t.steps[i].IsInProgress = false
	}
	t.notifyLocked()
}

// FailOperation halts the tracker without completing the remaining
// steps. The in-progress step keeps its flag so the UI can show where
// the operation stopped.
func (t *StepTracker) FailOperation(reason string) {
	t.mu.Lock()
	t.failed = true
	t.failReason = reason
	t.notifyLocked()
}

// Steps returns a snapshot of the step sequence
func (t *StepTracker) Steps() []ProgressStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProgressStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// Failed returns whether the operation failed and the recorded reason
func (t *StepTracker) Failed() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed, t.failReason
}

// notifyLocked snapshots steps, releases the lock and invokes listeners
func (t *StepTracker) notifyLocked() {
	snapshot := make([]ProgressStep, len(t.steps))
	copy(snapshot, t.steps)
	listeners := t.listeners
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
