package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/queue"
)

type captureSink struct {
	mu      sync.Mutex
	batches [][]*models.Event
	err     error
	delay   time.Duration
	calls   int
}

func (s *captureSink) BulkInsertEvents(ctx context.Context, events []*models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.calls++
	if s.err != nil {
		return s.err
	}
	batch := make([]*models.Event, len(events))
	copy(batch, events)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *captureSink) snapshot() ([][]*models.Event, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches, s.calls
}

type captureDLQ struct {
	mu      sync.Mutex
	batches [][]*models.Event
}

func (d *captureDLQ) Write(ctx context.Context, events []*models.Event, cause error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	batch := make([]*models.Event, len(events))
	copy(batch, events)
	d.batches = append(d.batches, batch)
	return nil
}

func (d *captureDLQ) Close() error { return nil }

func event(id string) *models.Event {
	return &models.Event{ID: id, EventType: models.EventPageView, EventTime: time.Now().UTC()}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func startProcessor(t *testing.T, q *queue.Queue, sink Sink, dl *captureDLQ, maxSize int, maxWait time.Duration) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var p *Processor
	if dl != nil {
		p = New(q, sink, dl, maxSize, maxWait, quietLogger())
	} else {
		p = New(q, sink, nil, maxSize, maxWait, quietLogger())
	}
	go p.Run(ctx)
	t.Cleanup(func() {
		cancel()
		select {
		case <-p.Done():
		case <-time.After(5 * time.Second):
			t.Error("processor did not stop")
		}
	})
	return cancel
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestProcessor_SizeTrigger(t *testing.T) {
	q := queue.New(100, queue.Block)
	sink := &captureSink{}
	// Long max wait: only the size trigger can close the batch quickly.
	startProcessor(t, q, sink, nil, 3, 10*time.Second)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, event(fmt.Sprintf("evt-%d", i))); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	waitFor(t, func() bool {
		batches, _ := sink.snapshot()
		return len(batches) == 1
	}, "batch of 3 not flushed before the 10s window elapsed")

	batches, _ := sink.snapshot()
	if len(batches[0]) != 3 {
		t.Fatalf("flushed batch size = %d, want 3", len(batches[0]))
	}
	for i, evt := range batches[0] {
		want := fmt.Sprintf("evt-%d", i)
		if evt.ID != want {
			t.Errorf("batch[%d] = %s, want %s", i, evt.ID, want)
		}
	}
}

func TestProcessor_TimeoutTrigger(t *testing.T) {
	q := queue.New(100, queue.Block)
	sink := &captureSink{}
	startProcessor(t, q, sink, nil, 100, 200*time.Millisecond)

	if err := q.Enqueue(context.Background(), event("lonely")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	waitFor(t, func() bool {
		batches, _ := sink.snapshot()
		return len(batches) == 1
	}, "single event not flushed after the batch window elapsed")

	batches, _ := sink.snapshot()
	if len(batches[0]) != 1 || batches[0][0].ID != "lonely" {
		t.Errorf("flushed batch = %v, want exactly the one event", batches[0])
	}
}

func TestProcessor_EmptyWindowSkipsFlush(t *testing.T) {
	q := queue.New(10, queue.Block)
	sink := &captureSink{}
	startProcessor(t, q, sink, nil, 10, 50*time.Millisecond)

	// Several empty windows pass; the sink must never be called.
	time.Sleep(300 * time.Millisecond)

	_, calls := sink.snapshot()
	if calls != 0 {
		t.Errorf("sink called %d times with no events queued, want 0", calls)
	}
}

func TestProcessor_FIFOAcrossBatches(t *testing.T) {
	q := queue.New(100, queue.Block)
	sink := &captureSink{}
	startProcessor(t, q, sink, nil, 4, 100*time.Millisecond)

	ctx := context.Background()
	const total = 10
	for i := 0; i < total; i++ {
		if err := q.Enqueue(ctx, event(fmt.Sprintf("evt-%02d", i))); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	waitFor(t, func() bool {
		batches, _ := sink.snapshot()
		n := 0
		for _, b := range batches {
			n += len(b)
		}
		return n == total
	}, "not all events flushed")

	batches, _ := sink.snapshot()
	i := 0
	for _, b := range batches {
		for _, evt := range b {
			want := fmt.Sprintf("evt-%02d", i)
			if evt.ID != want {
				t.Fatalf("flush order position %d = %s, want %s", i, evt.ID, want)
			}
			i++
		}
	}
}

func TestProcessor_FlushFailureDiscardsWithoutRetry(t *testing.T) {
	q := queue.New(10, queue.Block)
	sink := &captureSink{err: errors.New("storage down")}
	startProcessor(t, q, sink, nil, 10, 50*time.Millisecond)

	if err := q.Enqueue(context.Background(), event("doomed")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	waitFor(t, func() bool {
		_, calls := sink.snapshot()
		return calls >= 1
	}, "sink never called")

	// Give the loop time to (incorrectly) retry if it were going to.
	time.Sleep(300 * time.Millisecond)

	_, calls := sink.snapshot()
	if calls != 1 {
		t.Errorf("sink called %d times, want exactly 1 (failed batch must not be retried)", calls)
	}
}

func TestProcessor_FlushFailureGoesToDeadLetter(t *testing.T) {
	q := queue.New(10, queue.Block)
	sink := &captureSink{err: errors.New("storage down")}
	dl := &captureDLQ{}
	startProcessor(t, q, sink, dl, 10, 50*time.Millisecond)

	if err := q.Enqueue(context.Background(), event("doomed")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	waitFor(t, func() bool {
		dl.mu.Lock()
		defer dl.mu.Unlock()
		return len(dl.batches) == 1
	}, "failed batch never reached the dead-letter writer")

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if len(dl.batches[0]) != 1 || dl.batches[0][0].ID != "doomed" {
		t.Errorf("dead-lettered batch = %v, want the failed event", dl.batches[0])
	}
}

func TestProcessor_ShutdownDrainsBufferedEvents(t *testing.T) {
	q := queue.New(100, queue.Block)
	sink := &captureSink{}

	ctx, cancel := context.WithCancel(context.Background())
	p := New(q, sink, nil, 50, time.Hour, quietLogger())

	// Buffer events before the processor even starts consuming, then
	// stop it immediately: the drain path must still flush them.
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(context.Background(), event(fmt.Sprintf("evt-%d", i))); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	go p.Run(ctx)
	cancel()

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("processor did not stop")
	}

	batches, _ := sink.snapshot()
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	if n != 5 {
		t.Errorf("drain flushed %d events, want 5", n)
	}
}

func TestProcessor_SlowSinkDoesNotBlockEnqueue(t *testing.T) {
	q := queue.New(100, queue.Block)
	sink := &captureSink{delay: 500 * time.Millisecond}
	startProcessor(t, q, sink, nil, 1, 20*time.Millisecond)

	// Get the sink busy with one event.
	if err := q.Enqueue(context.Background(), event("first")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	// While the sink is blocked mid-flush, submissions keep returning
	// promptly: the queue decouples the edge from storage.
	start := time.Now()
	if err := q.Enqueue(context.Background(), event("second")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Enqueue() took %v while sink was flushing, want prompt return", elapsed)
	}
}
