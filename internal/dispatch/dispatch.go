package dispatch

import (
	"context"
	"fmt"
)

// Bridge abstracts "run this on the UI-confined execution context": the
// one serialized context that owns all UI-bound state mutation.
//
// Invoke executes fn on that context and waits for it to finish,
// propagating fn's error (or recovered panic) back to the caller.
// CheckAccess reports whether the calling context already is the
// UI-confined one, so callers can skip redundant marshaling.
type Bridge interface {
	Invoke(ctx context.Context, fn func(ctx context.Context) error) error
	CheckAccess(ctx context.Context) bool
}

type accessKey struct{}

// markAccess tags ctx as running on the UI-confined context
func markAccess(ctx context.Context) context.Context {
	return context.WithValue(ctx, accessKey{}, true)
}

// hasAccess reports whether ctx carries the UI-confined tag
func hasAccess(ctx context.Context) bool {
	v, _ := ctx.Value(accessKey{}).(bool)
	return v
}

// ErrStopped is returned by Invoke after the dispatcher loop has been
// stopped; calls fail fast rather than hang.
var ErrStopped = fmt.Errorf("dispatcher: stopped")

// Synchronous is a pass-through Bridge for headless use: every delegate
// runs inline on the calling goroutine.
type Synchronous struct{}

// Invoke runs fn immediately on the caller
func (Synchronous) Invoke(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher: panic in delegate: %v", r)
		}
	}()
	return fn(markAccess(ctx))
}

// CheckAccess always reports true for the pass-through bridge
func (Synchronous) CheckAccess(context.Context) bool { return true }
