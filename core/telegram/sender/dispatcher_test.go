package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	}))
	d.Close()

	require.EqualValues(t, 3, calls.Load())
	sent, failed := d.Stats()
	require.EqualValues(t, 1, sent)
	require.Zero(t, failed)
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 5, RetryBackoff: time.Millisecond})

	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", func() error {
		calls.Add(1)
		return errors.New("telegram: bad request (400)")
	}))
	d.Close()

	require.EqualValues(t, 1, calls.Load())
	_, failed := d.Stats()
	require.EqualValues(t, 1, failed)
}

func TestDispatcherQueueLimits(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})

	require.NoError(t, d.Enqueue(context.Background(), "a", func() error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", func() error { return nil }))
	require.ErrorIs(t, d.Enqueue(context.Background(), "c", func() error { return nil }), ErrQueueFull)

	close(block)
	d.Close()
	require.ErrorIs(t, d.Enqueue(context.Background(), "d", func() error { return nil }), ErrQueueClosed)
	d.Close()
}

func TestRedactHidesToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123:AAbb-_cc/sendMessage": timeout`)
	require.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, redact(err))
}
