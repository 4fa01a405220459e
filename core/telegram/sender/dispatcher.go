// Package sender runs outbound Telegram calls on a pool of workers. Jobs
// that share a shard key always land on the same worker, so messages to one
// chat keep their order.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/estatebot/core/logger"
	"github.com/m3rciful/estatebot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the target worker's queue is saturated.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound calls asynchronously with retries on
// transient network errors.
type Dispatcher struct {
	opts   Options
	queues []chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts the worker pool, filling zero options with defaults.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{opts: opts, queues: make([]chan job, opts.Workers)}
	perWorker := max(opts.QueueSize/opts.Workers, 1)
	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, perWorker)
		go d.worker(d.queues[i])
	}
	return d
}

// Enqueue schedules run on the worker owning shard. run must be safe to
// repeat when retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, shard int64, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	if shard < 0 {
		shard = -shard
	}
	select {
	case d.queues[shard%int64(len(d.queues))] <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed after all attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(q <-chan job) {
	defer d.wg.Done()
	for j := range q {
		d.handleJob(j)
	}
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	deadline, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = j.run(); lastErr == nil {
			logger.Debug(ctx, "tg.sender", "send.success",
				slog.String("action", j.action),
				slog.Int("attempts", attempt),
				slog.Duration("duration", time.Since(start)),
			)
			return
		}
		if !netutil.ShouldRetry(lastErr) || attempt == attempts {
			break
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-deadline.Done():
			timer.Stop()
			lastErr = errors.Join(lastErr, deadline.Err())
			attempt = attempts
		case <-timer.C:
			logger.Debug(ctx, "tg.sender", "send.retry",
				slog.String("action", j.action),
				slog.Int("attempts", attempt),
				slog.Duration("backoff", delay),
			)
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail",
		slog.String("action", j.action),
		slog.String("endpoint", j.endpoint),
		slog.String("err", netutil.RedactToken(lastErr.Error())),
		slog.String("err_code", netutil.Classify(lastErr)),
		slog.Duration("duration", time.Since(start)),
	)
}
