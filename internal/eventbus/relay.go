package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"go-event-hub/internal/core"
	"go-event-hub/internal/hub"
)

var (
	// ErrNotListening is returned by Run before Listen succeeded.
	ErrNotListening = errors.New("relay is not listening")
	// ErrAlreadyListening is returned by a second call to Listen.
	ErrAlreadyListening = errors.New("relay is already listening")
)

// Relay mirrors emissions between an Observable and a Bus. Forwarded events
// are published when emitted locally; listened events received from the bus
// are emitted locally by Run. A relay ignores the events it published itself
// and does not republish an event while Run is dispatching it, so two relays
// forwarding and listening on the same event do not loop.
//
// Forward, Unforward, Listen and Close must be called from the goroutine that
// owns the observable, as must Run.
type Relay struct {
	id        string
	obs       core.Observable
	bus       Bus
	logger    hclog.Logger
	forwarded map[string]*hub.Listener
	listened  []string
	inbound   <-chan core.Event
	relaying  string
}

// NewRelay returns a relay with a random instance ID.
func NewRelay(obs core.Observable, bus Bus, logger hclog.Logger) *Relay {
	if logger == nil {
		logger = hclog.Default()
	}
	id := uuid.NewString()
	return &Relay{
		id:        id,
		obs:       obs,
		bus:       bus,
		logger:    logger.With("relay", id),
		forwarded: make(map[string]*hub.Listener),
	}
}

// ID identifies this relay as the Source of the events it publishes.
func (r *Relay) ID() string { return r.id }

// Forward publishes every local emission of event to the bus. A publish error
// is returned from the local Emit. Forwarding the same event twice returns the
// existing listener.
func (r *Relay) Forward(ctx context.Context, event string) *hub.Listener {
	if l, ok := r.forwarded[event]; ok {
		return l
	}
	l := hub.NewListener(func(_ *hub.Hub, args ...any) error {
		if r.relaying == event {
			return nil
		}
		ev := core.Event{
			ID:        uuid.NewString(),
			Name:      event,
			Source:    r.id,
			Timestamp: time.Now().UTC(),
			Args:      args,
		}
		return r.bus.Publish(ctx, event, ev)
	})
	r.forwarded[event] = r.obs.On(event, l)
	r.logger.Debug("forwarding", "event", event)
	return l
}

// Unforward stops publishing event.
func (r *Relay) Unforward(event string) {
	l, ok := r.forwarded[event]
	if !ok {
		return
	}
	delete(r.forwarded, event)
	r.obs.Off(event, l)
}

// Listen subscribes to events on the bus. It may be called once per relay.
func (r *Relay) Listen(ctx context.Context, events ...string) error {
	if r.inbound != nil {
		return ErrAlreadyListening
	}
	ch, err := r.bus.Subscribe(ctx, events...)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	r.inbound = ch
	r.listened = append([]string(nil), events...)
	r.logger.Debug("listening", "events", events)
	return nil
}

// Run emits inbound events on the observable until ctx is done or the bus
// subscription ends. A failing listener is logged and does not stop the relay.
func (r *Relay) Run(ctx context.Context) error {
	if r.inbound == nil {
		return ErrNotListening
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.inbound:
			if !ok {
				return nil
			}
			if ev.Source == r.id {
				continue
			}
			r.relaying = ev.Name
			err := r.obs.Emit(ev.Name, ev.Args...)
			r.relaying = ""
			if err != nil {
				r.logger.Error("relayed dispatch failed", "event", ev.Name, "id", ev.ID, "source", ev.Source, "error", err)
			}
		}
	}
}

// Close removes the forwarding listeners and drops the bus subscriptions. The
// bus itself stays open.
func (r *Relay) Close(ctx context.Context) error {
	for event := range r.forwarded {
		r.Unforward(event)
	}
	var result error
	if len(r.listened) > 0 {
		if err := r.bus.Unsubscribe(ctx, r.listened...); err != nil {
			result = multierror.Append(result, err)
		}
		r.listened = nil
	}
	return result
}
