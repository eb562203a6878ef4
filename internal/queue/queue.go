// Package queue implements the bounded in-memory event queue that
// decouples request handling from storage. Many producer goroutines
// (one per in-flight request) hand events to a single consumer, the
// batch processor. The channel bounds memory use deterministically and,
// under the default blocking policy, transmits backpressure to the
// HTTP edge instead of buffering without limit.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/metrics"
	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

// ErrSaturated is returned by Enqueue under the reject policy when the
// queue is at capacity.
var ErrSaturated = errors.New("queue: saturated")

// FullPolicy decides what Enqueue does when the queue is full.
type FullPolicy int

const (
	// Block suspends the producer until space frees or its context is
	// canceled. This is the default: no events are dropped silently and
	// saturation surfaces as slower responses upstream.
	Block FullPolicy = iota
	// Reject fails immediately with ErrSaturated, which the gateway
	// surfaces as a 503.
	Reject
)

// ParseFullPolicy maps the config value to a policy; anything other
// than "reject" means Block.
func ParseFullPolicy(s string) FullPolicy {
	if s == "reject" {
		return Reject
	}
	return Block
}

// Queue is a fixed-capacity FIFO channel of events. Safe for concurrent
// producers; the consumer side is meant to be a single goroutine.
type Queue struct {
	ch       chan *models.Event
	capacity int
	policy   FullPolicy
}

// New creates a queue with the given capacity and full-queue policy.
func New(capacity int, policy FullPolicy) *Queue {
	metrics.QueueCapacity.Set(float64(capacity))
	return &Queue{
		ch:       make(chan *models.Event, capacity),
		capacity: capacity,
		policy:   policy,
	}
}

// Enqueue hands an event to the queue. Under the Block policy a full
// queue suspends the caller until space frees or ctx is done; under
// Reject it returns ErrSaturated immediately.
func (q *Queue) Enqueue(ctx context.Context, evt *models.Event) error {
	switch q.policy {
	case Reject:
		select {
		case q.ch <- evt:
			metrics.QueueDepth.Set(float64(len(q.ch)))
			return nil
		default:
			metrics.QueueRejections.Inc()
			return ErrSaturated
		}
	default:
		select {
		case q.ch <- evt:
			metrics.QueueDepth.Set(float64(len(q.ch)))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dequeue waits up to timeout for the next event. The second return is
// false when the wait timed out or ctx was canceled before an event
// arrived. One select covers the channel, the timer, and ctx, so no
// event can be lost between a poll and a wait.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*models.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case evt := <-q.ch:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return evt, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// TryDequeue returns the next buffered event without waiting. Used by
// the shutdown drain.
func (q *Queue) TryDequeue() (*models.Event, bool) {
	select {
	case evt := <-q.ch:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return evt, true
	default:
		return nil, false
	}
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return q.capacity
}
