package async

import (
	"sync"
	"time"
)

// ProgressReporter converts raw progress signals into a monotonic
// percentage for UI binding. Reported values are clamped to [0,100] and
// the externally visible value never regresses within one operation.
type ProgressReporter struct {
	mu        sync.Mutex
	percent   float64
	message   string
	startedAt time.Time
	listeners []func(percent float64, message string)
}

// NewProgressReporter creates a reporter with percentage 0
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{startedAt: time.Now()}
}

// OnChange registers a listener invoked after every visible change.
// Listeners are called synchronously from the reporting goroutine.
func (p *ProgressReporter) OnChange(fn func(percent float64, message string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Reset sets the percentage back to 0 and restarts the elapsed counter
func (p *ProgressReporter) Reset() {
	p.mu.Lock()
	p.percent = 0
	p.message = ""
	p.startedAt = time.Now()
	listeners := p.listeners
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(0, "")
	}
}

// Report updates the percentage. Values are clamped to [0,100]; a value
// below the current one is ignored so observers never see progress move
// backwards.
func (p *ProgressReporter) Report(percent float64) {
	p.report(percent, "", false)
}

// ReportMessage updates the percentage and the status message together
func (p *ProgressReporter) ReportMessage(message string, percent float64) {
	p.report(percent, message, true)
}

func (p *ProgressReporter) report(percent float64, message string, withMessage bool) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	p.mu.Lock()
	changed := false
	if percent > p.percent {
		p.percent = percent
		changed = true
	}
	if withMessage && message != p.message {
		p.message = message
		changed = true
	}
	visible := p.percent
	msg := p.message
	listeners := p.listeners
	p.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(visible, msg)
	}
}

// Percent returns the current visible percentage
func (p *ProgressReporter) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

// Message returns the current progress message
func (p *ProgressReporter) Message() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message
}

// Elapsed returns the time since the last Reset
func (p *ProgressReporter) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.startedAt)
}
