package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/estatebot/core/logger"
	"github.com/m3rciful/estatebot/core/telegram/sender"
)

// TaskDeliver is the asynq task type carrying one Event.
const TaskDeliver = "notify:deliver"

const queueName = "notify"

// Queue accepts events for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, e Event) error
	Start() error
	Close() error
}

// AsynqQueue stores events in Redis and delivers them from an asynq worker.
// Each event is attempted at most once: the task id is the event id and
// failed tasks are not retried.
type AsynqQueue struct {
	client   *asynq.Client
	server   *asynq.Server
	notifier *Notifier
}

// NewAsynqQueue connects to the Redis behind rdb.
func NewAsynqQueue(rdb *redis.Client, n *Notifier, concurrency int) *AsynqQueue {
	o := rdb.Options()
	opt := asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
	return &AsynqQueue{
		client: asynq.NewClient(opt),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: max(concurrency, 1),
			Queues:      map[string]int{queueName: 1},
			Logger:      asynqLogger{logger.Queue},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
				logger.Queue.LogAttrs(ctx, slog.LevelError, "",
					slog.String("event", "queue.task_failed"),
					slog.String("task", t.Type()),
					slog.String("err", err.Error()),
				)
			}),
		}),
		notifier: n,
	}
}

func (q *AsynqQueue) Enqueue(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	task := asynq.NewTask(TaskDeliver, payload)
	_, err = q.client.EnqueueContext(ctx, task, asynq.TaskID(e.ID), asynq.MaxRetry(0), asynq.Queue(queueName))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Queue.LogAttrs(ctx, slog.LevelInfo, "",
			slog.String("event", "queue.duplicate"),
			slog.String("event_id", e.ID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}
	return nil
}

func (q *AsynqQueue) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDeliver, q.notifier.ProcessTask)
	return q.server.Start(mux)
}

func (q *AsynqQueue) Close() error {
	q.server.Shutdown()
	return q.client.Close()
}

// ProcessTask decodes a TaskDeliver payload and delivers it. Malformed
// payloads are dropped without retry.
func (n *Notifier) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var e Event
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("decode event: %v: %w", err, asynq.SkipRetry)
	}
	if err := n.Deliver(ctx, e); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

// LocalQueue delivers events in process on a sender.Dispatcher. Queued
// events are lost on restart.
type LocalQueue struct {
	disp     *sender.Dispatcher
	notifier *Notifier
	seq      atomic.Int64
}

// NewLocalQueue starts workers goroutines.
func NewLocalQueue(n *Notifier, workers int) *LocalQueue {
	return &LocalQueue{
		disp:     sender.NewDispatcher(sender.Options{Workers: workers, QueueSize: 256 * max(workers, 1)}),
		notifier: n,
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, e Event) error {
	ctx = context.WithoutCancel(ctx)
	return q.disp.Enqueue(ctx, q.seq.Add(1), "notify."+string(e.Type), "events", func() error {
		if err := q.notifier.Deliver(ctx, e); err != nil {
			logger.Notify.LogAttrs(ctx, slog.LevelWarn, "",
				slog.String("event", "notify.invalid"),
				slog.String("err", err.Error()),
			)
		}
		return nil
	})
}

func (q *LocalQueue) Start() error { return nil }

// Close waits for queued events to finish.
func (q *LocalQueue) Close() error {
	q.disp.Close()
	return nil
}

// asynqLogger routes asynq's own logs to slog.
type asynqLogger struct{ l *slog.Logger }

func (a asynqLogger) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any) { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any) { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error(fmt.Sprint(args...)) }

func (a asynqLogger) Fatal(args ...any) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
