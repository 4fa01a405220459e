package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter fans log lines out to sinks from a single goroutine.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once
	sinks    []*bufio.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flush()
				return
			}
			w.write(line)
		case ack := <-w.flushReq:
			// drain pending lines so Flush observes every prior Write
			for n := len(w.queue); n > 0; n-- {
				w.write(<-w.queue)
			}
			ack <- w.flush()
		}
	}
}

// Write copies p and queues it. A full queue blocks rather than drops.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.lastErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush blocks until queued lines reach the sinks.
func (w *asyncWriter) Flush() error {
	select {
	case <-w.done:
		return w.lastErr()
	default:
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	return <-ack
}

// Close drains the queue and reports the first write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done
	return w.lastErr()
}

func (w *asyncWriter) write(p []byte) {
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			w.setErr(err)
			return
		}
	}
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, sink := range w.sinks {
		errs = append(errs, sink.Flush())
	}
	err := errors.Join(errs...)
	w.setErr(err)
	return err
}

func (w *asyncWriter) lastErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
