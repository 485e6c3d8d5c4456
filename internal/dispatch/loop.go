package dispatch

import (
	"context"
	"fmt"
	"sync"
)

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Loop is a Bridge backed by a single goroutine: the serialized execution
// context that owns UI-bound state. Delegates run strictly in submission
// order. A delegate invoked from within the loop runs inline, so
// re-entrant Invoke calls cannot deadlock.
type Loop struct {
	jobs     chan job
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLoop creates and starts a dispatcher loop with the given queue depth
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = 256
	}
	l := &Loop{
		jobs: make(chan job, queueSize),
		stop: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stop:
			// Drain jobs already queued so no caller hangs on done.
			for {
				select {
				case j := <-l.jobs:
					j.done <- ErrStopped
				default:
					return
				}
			}
		case j := <-l.jobs:
			j.done <- l.execute(j.ctx, j.fn)
		}
	}
}

func (l *Loop) execute(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher: panic in delegate: %v", r)
		}
	}()
	return fn(markAccess(ctx))
}

// Invoke marshals fn onto the loop goroutine and waits for completion.
// If the caller is already on the loop, fn runs inline. After Stop,
// Invoke fails fast with ErrStopped.
func (l *Loop) Invoke(ctx context.Context, fn func(ctx context.Context) error) error {
	if hasAccess(ctx) {
		return l.execute(ctx, fn)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case <-l.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case l.jobs <- j:
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		// The job may still run; the caller stops waiting.
		return ctx.Err()
	case <-l.stop:
		return ErrStopped
	}
}

// CheckAccess reports whether ctx is executing on the loop
func (l *Loop) CheckAccess(ctx context.Context) bool {
	return hasAccess(ctx)
}

// Stop shuts the loop down. Queued delegates are failed with ErrStopped
// and subsequent Invoke calls fail fast.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.wg.Wait()
}
