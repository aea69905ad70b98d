//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	t.Run("runs submitted tasks and drains on stop", func(t *testing.T) {
		p := NewPool("test", 2, 16, nil)
		p.Start(context.Background())

		var n int32
		for i := 0; i < 10; i++ {
			require.NoError(t, p.Submit(func(context.Context) error {
				atomic.AddInt32(&n, 1)
				return nil
			}))
		}
		p.Stop()
		assert.Equal(t, int32(10), atomic.LoadInt32(&n))
	})

	t.Run("rejects when saturated", func(t *testing.T) {
		p := NewPool("test", 1, 1, nil)
		// not started: the single slot fills and the next submit is refused
		require.NoError(t, p.Submit(func(context.Context) error { return nil }))
		assert.ErrorIs(t, p.Submit(func(context.Context) error { return nil }), ErrQueueFull)
	})

	t.Run("rejects after stop", func(t *testing.T) {
		p := NewPool("test", 1, 1, nil)
		p.Start(context.Background())
		p.Stop()
		p.Stop()
		assert.ErrorIs(t, p.Submit(func(context.Context) error { return nil }), ErrStopped)
	})

	t.Run("survives failing and panicking tasks", func(t *testing.T) {
		p := NewPool("test", 1, 4, nil)
		p.Start(context.Background())

		done := make(chan struct{})
		require.NoError(t, p.Submit(func(context.Context) error { return errors.New("boom") }))
		require.NoError(t, p.Submit(func(context.Context) error { panic("bad") }))
		require.NoError(t, p.Submit(func(context.Context) error { close(done); return nil }))

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pool stopped processing after a failing task")
		}
		p.Stop()
	})

	t.Run("cancelled context abandons the queue", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewPool("test", 1, 4, nil)
		cancel()
		p.Start(ctx)
		p.Stop()
	})

	t.Run("nil task", func(t *testing.T) {
		assert.Error(t, NewPool("test", 1, 1, nil).Submit(nil))
	})
}
