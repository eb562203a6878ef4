package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

const (
	streamName  = "TRACKING_DLQ"
	subjectBase = "tracking.dlq"
)

// JetStreamWriter persists failed batches to a NATS JetStream stream.
// Safe for use across multiple service instances; entries survive
// process restarts and can be replayed by an operator tool.
type JetStreamWriter struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	written uint64
}

// NewJetStreamWriter connects to NATS at natsURL and creates or updates
// the dead-letter stream.
func NewJetStreamWriter(ctx context.Context, natsURL string) (*JetStreamWriter, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectBase + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	slog.Info("dead-letter stream ready", slog.String("stream", streamName))

	return &JetStreamWriter{nc: nc, js: js}, nil
}

// Write publishes one failed batch to the dead-letter stream.
func (w *JetStreamWriter) Write(ctx context.Context, events []*models.Event, cause error) error {
	if w == nil {
		return nil
	}

	failed := FailedBatch{
		Timestamp: time.Now().UTC(),
		Error:     cause.Error(),
		Events:    events,
	}

	data, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	subject := fmt.Sprintf("%s.flush", subjectBase)
	if _, err := w.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	atomic.AddUint64(&w.written, 1)
	return nil
}

// Written returns the number of batches written by this instance.
func (w *JetStreamWriter) Written() uint64 {
	return atomic.LoadUint64(&w.written)
}

// Close drains the NATS connection.
func (w *JetStreamWriter) Close() error {
	if w == nil || w.nc == nil {
		return nil
	}
	w.nc.Close()
	return nil
}
