package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter fans lines out to its sinks from a single goroutine.
// Write blocks only when the queue is full; lines are never dropped.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}
	stop    sync.Once
	closed  atomic.Bool

	mu    sync.Mutex
	sinks []*bufio.Writer
	err   error
}

func newAsyncWriter(outs []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, out := range outs {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flush()
				return
			}
			w.write(line)
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

// Write copies p and queues it.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	if w.closed.Load() {
		return errWriterClosed
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until every queued line reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.failure(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.done:
		return nil
	}
}

// Close drains the queue and returns the first write error, if any.
func (w *asyncWriter) Close() error {
	w.stop.Do(func() {
		w.closed.Store(true)
		close(w.lines)
	})
	<-w.done
	return w.failure()
}

func (w *asyncWriter) write(p []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil {
			w.setLocked(err)
			return
		}
		if err := s.Flush(); err != nil {
			w.setLocked(err)
			return
		}
	}
}

func (w *asyncWriter) flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) setLocked(err error) {
	if w.err == nil {
		w.err = err
	}
}
