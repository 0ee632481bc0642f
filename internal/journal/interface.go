// Package journal keeps the last emission of hub events in Redis so that
// late joiners and operators can inspect what an event last carried.
package journal

import (
	"context"
	"time"
)

// Entry is the last recorded emission of an event.
type Entry struct {
	Event   string    `json:"event"`
	Args    []any     `json:"args"`
	Version int64     `json:"version"`
	At      time.Time `json:"at"`
}

// Store records emissions. Version counts the emissions recorded for an event
// since it was last deleted or expired.
type Store interface {
	Record(ctx context.Context, event string, args []any, ttl time.Duration) (int64, error)
	Last(ctx context.Context, event string) (*Entry, error)
	Delete(ctx context.Context, event string) error
	Close() error
}
