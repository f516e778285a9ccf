package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryQueue_EnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(2))
	defer func() { _ = q.Close() }()

	if !q.Enqueue(ctx, Batch{BatchID: "a"}) {
		t.Fatal("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, Batch{BatchID: "b"}) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Len(ctx) != 2 {
		t.Errorf("expected depth 2, got %d", q.Len(ctx))
	}

	// A full queue drops instead of blocking.
	if q.Enqueue(ctx, Batch{BatchID: "c"}) {
		t.Error("expected enqueue to fail on full queue")
	}

	out := q.Dequeue(ctx)
	first := <-out
	second := <-out
	if first.BatchID != "a" || second.BatchID != "b" {
		t.Errorf("expected FIFO order a,b got %s,%s", first.BatchID, second.BatchID)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue()

	if !q.Enqueue(ctx, Batch{BatchID: "a"}) {
		t.Fatal("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Closed queues refuse new batches but drain queued ones.
	if q.Enqueue(ctx, Batch{BatchID: "b"}) {
		t.Error("expected enqueue to fail after close")
	}

	out := q.Dequeue(ctx)
	select {
	case b, ok := <-out:
		if !ok || b.BatchID != "a" {
			t.Errorf("expected queued batch a, got %v ok=%v", b.BatchID, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queued batch")
	}

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected dequeue channel to close after drain")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	// Double close is a no-op.
	if err := q.Close(); err != nil {
		t.Errorf("expected idempotent close, got %v", err)
	}
}

func TestInMemoryQueue_DequeueCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemoryQueue()
	defer func() { _ = q.Close() }()

	out := q.Dequeue(ctx)
	cancel()

	// After cancellation the forwarder exits; once a batch arrives it is
	// either forwarded before exit or the channel closes.
	q.Enqueue(context.Background(), Batch{BatchID: "a"})
	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("dequeue channel neither delivered nor closed after cancel")
	}
}
