package store

import (
	"context"

	"github.com/skydelay/cascade-engine/internal/models"
)

// Sink receives every snapshot the pipeline publishes, for consumers outside this process.
type Sink interface {
	Publish(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

// NoopSink implements Sink but never persists anything.
type NoopSink struct{}

// Publish discards the snapshot.
func (NoopSink) Publish(context.Context, *models.Snapshot) error { return nil }

// Close is a no-op.
func (NoopSink) Close() error { return nil }
