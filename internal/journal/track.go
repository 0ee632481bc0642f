package journal

import (
	"context"
	"time"

	"go-event-hub/internal/core"
	"go-event-hub/internal/hub"
)

// Track registers a listener on obs that records every emission of event in
// store. A store error is returned from Emit and stops the dispatch, so
// register Track before listeners that must only run once the emission is
// recorded. Pass the returned listener to Off to stop tracking.
func Track(ctx context.Context, obs core.Observable, store Store, event string, ttl time.Duration) *hub.Listener {
	return obs.On(event, hub.NewListener(func(_ *hub.Hub, args ...any) error {
		_, err := store.Record(ctx, event, args, ttl)
		return err
	}))
}
