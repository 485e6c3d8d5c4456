// Package collection provides an ordered, UI-bound container whose
// mutations are safe from any goroutine. Writes are marshaled through
// the dispatcher bridge onto the UI-confined execution context, so
// readers on that context never observe a half-applied mutation.
package collection

import (
	"context"
	"slices"
	"sync"

	"muniflow/internal/dispatch"
)

// ChangeKind identifies the mutation behind a change notification
type ChangeKind int

const (
	ChangeReplace ChangeKind = iota
	ChangeAdd
	ChangeAddRange
	ChangeRemove
)

// Change describes one atomic mutation. Batched operations produce a
// single Change per call, not one per element.
type Change[T any] struct {
	Kind  ChangeKind
	Items []T
}

// Collection is an ordered sequence of T preserving insertion order,
// duplicates allowed. Reads are defined only on the UI-confined context;
// no cross-thread read safety is provided.
type Collection[T comparable] struct {
	bridge dispatch.Bridge
	items  []T

	mu        sync.Mutex
	listeners []func(Change[T])
}

// New creates a collection bound to the given dispatcher bridge
func New[T comparable](bridge dispatch.Bridge) *Collection[T] {
	return &Collection[T]{bridge: bridge}
}

// OnChange registers a listener invoked on the UI-confined context after
// every mutation. Registration is safe from any goroutine.
func (c *Collection[T]) OnChange(fn func(Change[T])) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// ReplaceAll atomically discards the current contents and adopts items
// in order. The swap is a single step with one change notification;
// observers never see a cleared-then-repopulating interval.
func (c *Collection[T]) ReplaceAll(ctx context.Context, items []T) error {
	adopted := make([]T, len(items))
	copy(adopted, items)
	return c.bridge.Invoke(ctx, func(ctx context.Context) error {
		c.items = adopted
		c.notify(Change[T]{Kind: ChangeReplace, Items: adopted})
		return nil
	})
}

// Add appends one item
func (c *Collection[T]) Add(ctx context.Context, item T) error {
	return c.bridge.Invoke(ctx, func(ctx context.Context) error {
		c.items = append(c.items, item)
		c.notify(Change[T]{Kind: ChangeAdd, Items: []T{item}})
		return nil
	})
}

// AddRange appends items in order with one change notification
func (c *Collection[T]) AddRange(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]T, len(items))
	copy(batch, items)
	return c.bridge.Invoke(ctx, func(ctx context.Context) error {
		c.items = append(c.items, batch...)
		c.notify(Change[T]{Kind: ChangeAddRange, Items: batch})
		return nil
	})
}

// Remove deletes the first occurrence of item. Removing an absent item
// is a no-op with no notification.
func (c *Collection[T]) Remove(ctx context.Context, item T) error {
	return c.bridge.Invoke(ctx, func(ctx context.Context) error {
		i := slices.Index(c.items, item)
		if i < 0 {
			return nil
		}
		c.items = slices.Delete(c.items, i, i+1)
		c.notify(Change[T]{Kind: ChangeRemove, Items: []T{item}})
		return nil
	})
}

// Items returns a copy of the current contents. UI-confined context only.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the element count. UI-confined context only.
func (c *Collection[T]) Len() int { return len(c.items) }

// At returns the element at index i. UI-confined context only.
func (c *Collection[T]) At(i int) T { return c.items[i] }

func (c *Collection[T]) notify(change Change[T]) {
	c.mu.Lock()
	fns := append([]func(Change[T]){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}
