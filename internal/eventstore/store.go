// Package eventstore records packaging events in SQLite.
package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves events.
type Store interface {
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)
	// GetRange returns events with start <= timestamp <= end, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)
	Close() error
}
