package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

func event(id string) *models.Event {
	return &models.Event{ID: id, EventType: models.EventPageView}
}

func TestQueue_FIFO(t *testing.T) {
	q := New(10, Block)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, event(fmt.Sprintf("evt-%d", i))); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	for i := 0; i < 5; i++ {
		evt, ok := q.Dequeue(ctx, time.Second)
		if !ok {
			t.Fatalf("Dequeue() #%d timed out", i)
		}
		want := fmt.Sprintf("evt-%d", i)
		if evt.ID != want {
			t.Errorf("Dequeue() #%d = %s, want %s", i, evt.ID, want)
		}
	}
}

func TestQueue_DequeueTimeout(t *testing.T) {
	q := New(1, Block)

	start := time.Now()
	_, ok := q.Dequeue(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	if ok {
		t.Error("Dequeue() on empty queue = ok, want timeout")
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("Dequeue() returned after %v, want at least ~50ms", elapsed)
	}
}

func TestQueue_BlockPolicy_Backpressure(t *testing.T) {
	q := New(2, Block)
	ctx := context.Background()

	// Fill the queue; nothing drains it.
	if err := q.Enqueue(ctx, event("a")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := q.Enqueue(ctx, event("b")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	blocked := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		blocked <- q.Enqueue(ctx, event("c"))
	}()

	// The third producer must be suspended, not failed or dropped.
	select {
	case err := <-blocked:
		t.Fatalf("third Enqueue() returned %v before space freed", err)
	case <-time.After(100 * time.Millisecond):
	}

	// Free one slot; the blocked producer completes.
	if _, ok := q.TryDequeue(); !ok {
		t.Fatal("TryDequeue() on full queue failed")
	}

	select {
	case err := <-blocked:
		if err != nil {
			t.Errorf("unblocked Enqueue() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("third Enqueue() still blocked after space freed")
	}
	wg.Wait()
}

func TestQueue_BlockPolicy_ContextCancel(t *testing.T) {
	q := New(1, Block)
	if err := q.Enqueue(context.Background(), event("a")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := q.Enqueue(ctx, event("b"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Enqueue() on full queue with expiring ctx error = %v, want DeadlineExceeded", err)
	}
}

func TestQueue_RejectPolicy(t *testing.T) {
	q := New(1, Reject)
	ctx := context.Background()

	if err := q.Enqueue(ctx, event("a")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	err := q.Enqueue(ctx, event("b"))
	if !errors.Is(err, ErrSaturated) {
		t.Errorf("Enqueue() on full queue error = %v, want ErrSaturated", err)
	}
}

func TestQueue_ConcurrentProducers_NoLossNoDup(t *testing.T) {
	const producers = 8
	const perProducer = 100

	q := New(producers*perProducer, Block)
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(ctx, event(fmt.Sprintf("p%d-%d", p, i))); err != nil {
					t.Errorf("Enqueue() error = %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool, producers*perProducer)
	lastPerProducer := make(map[string]int)
	for {
		evt, ok := q.TryDequeue()
		if !ok {
			break
		}
		if seen[evt.ID] {
			t.Fatalf("duplicate event %s", evt.ID)
		}
		seen[evt.ID] = true

		// Per-producer submission order is preserved.
		var p, i int
		fmt.Sscanf(evt.ID, "p%d-%d", &p, &i)
		key := fmt.Sprintf("p%d", p)
		if last, ok := lastPerProducer[key]; ok && i <= last {
			t.Fatalf("producer %s out of order: %d after %d", key, i, last)
		}
		lastPerProducer[key] = i
	}

	if len(seen) != producers*perProducer {
		t.Errorf("drained %d events, want %d", len(seen), producers*perProducer)
	}
}
