package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"muniflow/internal/infrastructure"
)

// Operation is a unit of background work. It receives the executor's
// current cancellation signal and must return promptly once that signal
// fires.
type Operation func(ctx context.Context) error

// Executor composes the single-flight guard, retry policy and progress
// reporting into one entry point for background work with UI-bound
// loading state.
//
// State machine of one operation:
// Idle -> Loading -> {Succeeded | Cancelled | Failed} -> Idle.
// All three terminal transitions pass through the same cleanup path.
type Executor struct {
	logger   *slog.Logger
	metrics  *infrastructure.OperationMetrics
	retry    RetryPolicy
	state    *OperationState
	progress *ProgressReporter
	guard    Guard

	broadcaster *Broadcaster

	mu          sync.Mutex
	epochCtx    context.Context
	epochCancel context.CancelFunc
	closed      bool
	currentOp   string
}

// Option configures an Executor
type Option func(*Executor)

// WithRetryPolicy overrides the default retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Executor) { e.retry = p }
}

// WithMetrics attaches executor lifecycle metrics
func WithMetrics(m *infrastructure.OperationMetrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithBroadcaster attaches a status broadcaster that receives operation
// snapshots for UI delivery
func WithBroadcaster(b *Broadcaster) Option {
	return func(e *Executor) { e.broadcaster = b }
}

// NewExecutor creates an executor with a fresh cancellation epoch
func NewExecutor(logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		logger:   logger,
		retry:    DefaultRetryPolicy(logger),
		state:    &OperationState{},
		progress: NewProgressReporter(),
	}
	e.epochCtx, e.epochCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(e)
	}

	// Forward progress changes for the in-flight operation to the
	// broadcaster. Registered once; the current operation ID scopes
	// updates to the right snapshot.
	if e.broadcaster != nil {
		e.progress.OnChange(func(percent float64, message string) {
			if id := e.currentOpID(); id != "" {
				e.broadcaster.Progress(id, percent, message)
			}
		})
	}
	return e
}

// State returns the UI-bound loading state
func (e *Executor) State() *OperationState { return e.state }

// Progress returns the executor's progress reporter
func (e *Executor) Progress() *ProgressReporter { return e.progress }

// Running reports whether an operation currently holds the guard
func (e *Executor) Running() bool { return e.guard.InFlight() }

// ExecuteConfig carries the optional per-call settings
type ExecuteConfig struct {
	name          string
	statusMessage string
	tracker       *StepTracker
	retries       int
	withRetry     bool
}

// ExecuteOption configures a single Execute call
type ExecuteOption func(*ExecuteConfig)

// WithName names the operation in logs and snapshots
func WithName(name string) ExecuteOption {
	return func(c *ExecuteConfig) { c.name = name }
}

// WithStatusMessage sets the status text shown while loading
func WithStatusMessage(msg string) ExecuteOption {
	return func(c *ExecuteConfig) { c.statusMessage = msg }
}

// WithStepTracker attaches phase-level progress tracking
func WithStepTracker(t *StepTracker) ExecuteOption {
	return func(c *ExecuteConfig) { c.tracker = t }
}

// WithRetries wraps the operation in the executor's retry policy with
// the given retry bound
func WithRetries(n int) ExecuteOption {
	return func(c *ExecuteConfig) {
		c.withRetry = true
		c.retries = n
	}
}

// Execute runs op as the executor's single in-flight operation.
//
// If another load already holds the guard the call is skipped entirely:
// no state is touched and ErrDuplicateRequest is returned. Otherwise
// loading state is set, op runs under the current cancellation epoch,
// and a deferred cleanup block restores {IsLoading: false,
// StatusMessage: ""} on every path, so the UI can never get stuck
// showing a stale loading indicator.
func (e *Executor) Execute(ctx context.Context, op Operation, opts ...ExecuteOption) error {
	cfg := ExecuteConfig{name: "operation"}
	for _, opt := range opts {
		opt(&cfg)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorClosed
	}
	epochCtx := e.epochCtx
	e.mu.Unlock()

	if !e.guard.TryEnter() {
		e.logDuplicateSkip(ctx, cfg.name)
		if e.metrics != nil {
			e.metrics.DuplicateSkips.Add(ctx, 1)
		}
		return ErrDuplicateRequest
	}
	defer e.guard.Release()

	opID := uuid.NewString()
	e.setCurrentOpID(opID)
	defer e.setCurrentOpID("")

	start := time.Now()
	e.state.set(true, cfg.statusMessage)
	e.progress.Reset()
	defer func() {
		e.state.set(false, "")
		if e.metrics != nil {
			e.metrics.OperationDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	e.logOperationStart(ctx, opID, cfg.name)
	if e.metrics != nil {
		e.metrics.OperationsStarted.Add(ctx, 1)
	}
	if e.broadcaster != nil {
		var steps []ProgressStep
		if cfg.tracker != nil {
			steps = cfg.tracker.Steps()
		}
		e.broadcaster.Created(opID, cfg.name, steps)
		e.broadcaster.Started(opID)
		if cfg.tracker != nil {
			b := e.broadcaster
			cfg.tracker.OnChange(func(steps []ProgressStep) {
				b.StepsUpdated(opID, steps)
			})
		}
	}

	// Tie the operation to both the caller's context and the current
	// cancellation epoch, so ResetCancellation invalidates stale work.
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(epochCtx, cancel)
	defer stop()

	run := op
	if cfg.withRetry {
		policy := e.retry
		policy.MaxRetries = cfg.retries
		run = func(ctx context.Context) error {
			attempts := 0
			return policy.Execute(ctx, cfg.name, func(ctx context.Context) error {
				attempts++
				if attempts > 1 && e.metrics != nil {
					e.metrics.RetryAttempts.Add(ctx, 1)
				}
				return op(ctx)
			})
		}
	}

	err := run(opCtx)

	switch {
	case err == nil:
		e.progress.Report(100)
		if cfg.tracker != nil {
			cfg.tracker.CompleteOperation()
		}
		e.logOperationComplete(ctx, opID, cfg.name, time.Since(start))
		if e.metrics != nil {
			e.metrics.OperationsCompleted.Add(ctx, 1)
		}
		if e.broadcaster != nil {
			e.broadcaster.Completed(opID, "operation completed")
		}
		return nil

	case IsCancellation(err):
		e.logOperationCancelled(ctx, opID, cfg.name)
		if cfg.tracker != nil {
			cfg.tracker.FailOperation("cancelled")
		}
		if e.metrics != nil {
			e.metrics.OperationsCancelled.Add(ctx, 1)
		}
		if e.broadcaster != nil {
			e.broadcaster.Cancelled(opID)
		}
		return err

	default:
		e.logOperationFailed(ctx, opID, cfg.name, err)
		if cfg.tracker != nil {
			cfg.tracker.FailOperation(err.Error())
		}
		if e.metrics != nil {
			e.metrics.OperationsFailed.Add(ctx, 1)
		}
		if e.broadcaster != nil {
			e.broadcaster.Failed(opID, err)
		}
		return err
	}
}

// CancelOperations signals the current cancellation epoch. In-flight
// work observes the signal cooperatively.
func (e *Executor) CancelOperations() {
	e.mu.Lock()
	cancel := e.epochCancel
	e.mu.Unlock()
	cancel()
}

// ResetCancellation invalidates the current epoch and issues a new one,
// so a subsequent Execute is unaffected by a stale cancellation while
// operations started under the old epoch still observe it.
func (e *Executor) ResetCancellation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.epochCancel()
	e.epochCtx, e.epochCancel = context.WithCancel(context.Background())
}

// Close cancels the current epoch and makes subsequent Execute calls
// fail fast with ErrExecutorClosed
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.epochCancel()
}

func (e *Executor) currentOpID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentOp
}

func (e *Executor) setCurrentOpID(id string) {
	e.mu.Lock()
	e.currentOp = id
	e.mu.Unlock()
}
