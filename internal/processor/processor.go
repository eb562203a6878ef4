// Package processor implements the background consumer that drains the
// bounded event queue into batches and persists each batch with one
// bulk insert. Exactly one processor goroutine runs for the lifetime of
// the process.
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/dlq"
	"github.com/volcanion-systems/volcanion-tracking/internal/metrics"
	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/queue"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

// Sink is the bulk-insert side of the storage collaborator.
type Sink interface {
	BulkInsertEvents(ctx context.Context, events []*models.Event) error
}

// Processor accumulates events from the queue and flushes them in
// batches bounded by count and by time.
type Processor struct {
	queue      *queue.Queue
	sink       Sink
	deadLetter dlq.Writer // nil when dead-lettering is disabled
	maxSize    int
	maxWait    time.Duration
	logger     *slog.Logger
	done       chan struct{}
}

// New creates a processor. deadLetter may be nil, in which case a batch
// that fails to flush is logged and discarded.
func New(q *queue.Queue, sink Sink, deadLetter dlq.Writer, maxSize int, maxWait time.Duration, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		queue:      q,
		sink:       sink,
		deadLetter: deadLetter,
		maxSize:    maxSize,
		maxWait:    maxWait,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run loops until ctx is canceled: accumulate a batch, flush it, repeat.
// On cancellation it drains what is currently buffered once, flushes,
// and returns. Call from a dedicated goroutine.
func (p *Processor) Run(ctx context.Context) {
	defer close(p.done)
	p.logger.Info("batch processor started",
		slog.Int("max_size", p.maxSize),
		slog.Duration("max_wait", p.maxWait),
	)

	batch := make([]*models.Event, 0, p.maxSize)

	for {
		if ctx.Err() != nil {
			p.drain(batch)
			p.logger.Info("batch processor stopped")
			return
		}

		// Accumulate until the batch is full or a dequeue attempt times
		// out. The dequeue wait doubles as the batch time window.
		for len(batch) < p.maxSize {
			evt, ok := p.queue.Dequeue(ctx, p.maxWait)
			if !ok {
				break
			}
			batch = append(batch, evt)
		}

		if len(batch) > 0 {
			p.flush(batch)
			batch = batch[:0]
		}
	}
}

// Done is closed once Run has exited.
func (p *Processor) Done() <-chan struct{} {
	return p.done
}

// drain empties what is buffered right now, flushes it, and gives up.
// Events enqueued after shutdown begins may be lost; that is the
// documented shutdown contract.
func (p *Processor) drain(batch []*models.Event) {
	for {
		evt, ok := p.queue.TryDequeue()
		if !ok {
			break
		}
		batch = append(batch, evt)
		if len(batch) >= p.maxSize {
			p.flush(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		p.flush(batch)
	}
}

// flush persists one batch with a single bulk insert. A failed flush is
// counted and logged, handed to the dead-letter writer when one is
// configured, and never retried here: the submitter already received
// its acknowledgment, so the failure cannot propagate to any caller.
func (p *Processor) flush(batch []*models.Event) {
	// Fresh context: the request contexts that produced these events are
	// long gone, and Run's context may already be canceled during drain.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	err := p.sink.BulkInsertEvents(ctx, batch)
	metrics.FlushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FlushFailures.Inc()
		p.logger.Error("batch flush failed, discarding batch",
			logging.BatchSize(len(batch)),
			logging.Error(err),
		)
		if p.deadLetter != nil {
			if dlqErr := p.deadLetter.Write(ctx, batch, err); dlqErr != nil {
				p.logger.Error("dead-letter write failed",
					logging.BatchSize(len(batch)),
					logging.Error(dlqErr),
				)
			}
		}
		return
	}

	metrics.BatchesFlushed.Inc()
	p.logger.Debug("flushed batch", logging.BatchSize(len(batch)))
}
