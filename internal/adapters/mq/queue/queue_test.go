package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type job struct {
	ID int
}

func fill(t *testing.T, q *InMemoryQueue[job], n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if err := q.EnqueueWait(context.Background(), job{ID: i}); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.EnqueueWait(ctx, job{ID: 1}); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue()
	q.Ack()
	if got.ID != 1 {
		t.Errorf("expected job 1, got %d", got.ID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(2))
	ctx := context.Background()

	fill(t, q, 2)

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.EnqueueWait(tctx, job{ID: 3}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected enqueue to time out when full, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_EnqueueWait(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(1))
	ctx := context.Background()

	if err := q.EnqueueWait(ctx, job{ID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Full: waits until a receiver makes room.
	done := make(chan error, 1)
	go func() { done <- q.EnqueueWait(ctx, job{ID: 2}) }()

	select {
	case err := <-done:
		t.Fatalf("expected enqueue to block, got %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	<-q.Dequeue()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Full again: a cancelled context releases the producer.
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.EnqueueWait(cctx, job{ID: 3}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(16))
	ctx := context.Background()
	producers, perProducer := 8, 100

	var seen sync.Map
	var consumers sync.WaitGroup
	for i := 0; i < 4; i++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for j := range q.Dequeue() {
				q.Ack()
				seen.Store(j.ID, struct{}{})
			}
		}()
	}

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.EnqueueWait(ctx, job{ID: p*perProducer + j}); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	_ = q.Close()
	consumers.Wait()

	count := 0
	seen.Range(func(_, _ any) bool { count++; return true })
	if count != producers*perProducer {
		t.Errorf("expected %d jobs delivered once, got %d", producers*perProducer, count)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(10))
	ctx := context.Background()

	fill(t, q, 2)
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.EnqueueWait(ctx, job{ID: 3}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Queued jobs drain before the channel closes.
	var drained []int
	for j := range q.Dequeue() {
		drained = append(drained, j.ID)
	}
	if len(drained) != 2 {
		t.Errorf("expected 2 drained jobs, got %v", drained)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
