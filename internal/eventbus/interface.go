package eventbus

import (
	"context"

	"go-event-hub/internal/core"
)

// Bus carries hub emissions between processes.
type Bus interface {
	Publish(ctx context.Context, topic string, event core.Event) error
	Subscribe(ctx context.Context, topics ...string) (<-chan core.Event, error)
	Unsubscribe(ctx context.Context, topics ...string) error
	Close() error
}
