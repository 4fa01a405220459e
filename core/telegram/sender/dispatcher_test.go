package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestShardKeepsOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 64})
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 20; i++ {
		i := i
		if err := d.Enqueue(context.Background(), 42, "send", "sendMessage", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	d.Close()

	if len(got) != 20 {
		t.Fatalf("want 20 jobs, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
}

func TestRetriesDialErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	dial := &net.OpError{Op: "dial", Err: errors.New("refused")}
	_ = d.Enqueue(context.Background(), 1, "send", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return dial
		}
		return nil
	})
	d.Close()

	if calls.Load() != 3 {
		t.Fatalf("want 3 attempts, got %d", calls.Load())
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("want no errors, got %d", d.ErrorCount())
	}
}

func TestPermanentErrorIsCountedOnce(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), 1, "send", "sendMessage", func() error {
		calls.Add(1)
		return errors.New("chat not found")
	})
	d.Close()

	if calls.Load() != 1 {
		t.Fatalf("non-transient error retried: %d attempts", calls.Load())
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("want 1 error, got %d", d.ErrorCount())
	}
}

func TestQueueFullAndClosed(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	started := make(chan struct{})
	release := make(chan struct{})
	noop := func() error { return nil }

	if err := d.Enqueue(context.Background(), 0, "block", "", func() error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-started
	if err := d.Enqueue(context.Background(), 0, "fill", "", noop); err != nil {
		t.Fatalf("enqueue fill: %v", err)
	}
	if err := d.Enqueue(context.Background(), 0, "overflow", "", noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
	close(release)
	d.Close()

	if err := d.Enqueue(context.Background(), 0, "late", "", noop); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("want ErrQueueClosed, got %v", err)
	}
	if err := d.Enqueue(context.Background(), 0, "nil", "", nil); err == nil {
		t.Fatal("nil run accepted")
	}
}
