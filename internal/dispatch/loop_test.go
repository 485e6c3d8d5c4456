package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopInvokeRunsDelegate(t *testing.T) {
	loop := NewLoop(16)
	t.Cleanup(loop.Stop)

	ran := false
	err := loop.Invoke(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestLoopPropagatesError(t *testing.T) {
	loop := NewLoop(16)
	t.Cleanup(loop.Stop)

	boom := errors.New("boom")
	err := loop.Invoke(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestLoopRecoversPanic(t *testing.T) {
	loop := NewLoop(16)
	t.Cleanup(loop.Stop)

	err := loop.Invoke(context.Background(), func(ctx context.Context) error {
		panic("delegate exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delegate exploded")

	// The loop survives the panic.
	assert.NoError(t, loop.Invoke(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestLoopCheckAccess(t *testing.T) {
	loop := NewLoop(16)
	t.Cleanup(loop.Stop)

	assert.False(t, loop.CheckAccess(context.Background()))

	err := loop.Invoke(context.Background(), func(ctx context.Context) error {
		assert.True(t, loop.CheckAccess(ctx), "delegate runs on the loop context")
		return nil
	})
	require.NoError(t, err)
}

func TestLoopReentrantInvokeRunsInline(t *testing.T) {
	loop := NewLoop(1)
	t.Cleanup(loop.Stop)

	err := loop.Invoke(context.Background(), func(ctx context.Context) error {
		// A nested Invoke from the loop itself must not deadlock.
		return loop.Invoke(ctx, func(ctx context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestLoopSerializesDelegates(t *testing.T) {
	loop := NewLoop(64)
	t.Cleanup(loop.Stop)

	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_ = loop.Invoke(context.Background(), func(ctx context.Context) error {
				order = append(order, i) // safe: loop is the only writer
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, order, 20, "no delegate lost and no data race on the shared slice")
}

func TestLoopStopFailsFast(t *testing.T) {
	loop := NewLoop(16)
	loop.Stop()

	err := loop.Invoke(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestLoopInvokeHonorsContext(t *testing.T) {
	loop := NewLoop(16)
	t.Cleanup(loop.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Invoke(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynchronousBridge(t *testing.T) {
	var bridge Synchronous

	assert.True(t, bridge.CheckAccess(context.Background()))

	ran := false
	err := bridge.Invoke(context.Background(), func(ctx context.Context) error {
		ran = true
		assert.True(t, hasAccess(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	err = bridge.Invoke(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})
	assert.Error(t, err)
}
