// Package dlq provides an optional dead-letter sink for batches the
// processor could not flush. The default configuration runs without a
// writer, which preserves the documented lossy-on-storage-failure
// behavior; deployments that need recovery enable the JetStream backend
// and replay from the stream.
package dlq

import (
	"context"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

// FailedBatch is one dead-lettered flush attempt.
type FailedBatch struct {
	Timestamp time.Time       `json:"timestamp"`
	Error     string          `json:"error"`
	Events    []*models.Event `json:"events"`
}

// Writer records batches that failed to persist. The processor calls
// Write from its single goroutine; Close may race with a final Write
// during shutdown, so implementations must tolerate that.
type Writer interface {
	Write(ctx context.Context, events []*models.Event, cause error) error
	Close() error
}
