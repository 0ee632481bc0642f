// Package hub provides a synchronous, single-owner event hub. Listeners are
// registered per event name and run inline, in registration order, on the
// goroutine that calls Emit.
//
// A Hub is not safe for concurrent use. Code that receives events on other
// goroutines must hand them to the owning goroutine before calling Emit.
package hub

import (
	"sort"

	"github.com/hashicorp/go-hclog"
)

var nullLogger = hclog.NewNullLogger()

// Hub maps event names to ordered listener sequences. The zero value is ready
// to use, which makes Hub suitable for embedding.
type Hub struct {
	listeners map[string][]*Listener
	logger    hclog.Logger
}

// Option configures a Hub built with New.
type Option func(*Hub)

// WithLogger sets the logger used for trace output.
func WithLogger(logger hclog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

// New returns an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{listeners: make(map[string][]*Listener)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) log() hclog.Logger {
	if h.logger == nil {
		return nullLogger
	}
	return h.logger
}

// On appends l to the listeners of event and returns l so it can be passed to
// Off later. The same handle may be registered any number of times; every
// occurrence fires. A nil handle is ignored.
func (h *Hub) On(event string, l *Listener) *Listener {
	if l == nil {
		return nil
	}
	if h.listeners == nil {
		h.listeners = make(map[string][]*Listener)
	}
	h.listeners[event] = append(h.listeners[event], l)
	h.log().Trace("listener added", "event", event, "count", len(h.listeners[event]))
	return l
}

// OnFunc registers fn under event and returns its new handle.
func (h *Hub) OnFunc(event string, fn Handler) *Listener {
	return h.On(event, NewListener(fn))
}

// Once registers a one-shot wrapper around l. The wrapper deregisters itself
// before calling l, so it is gone even if l fails or panics.
func (h *Hub) Once(event string, l *Listener) {
	if l == nil {
		return
	}
	h.On(event, onceWrapper(event, l))
}

// OnceFunc registers fn under event as a one-shot listener.
func (h *Hub) OnceFunc(event string, fn Handler) {
	h.Once(event, NewListener(fn))
}

// Off removes the most recently added occurrence of l from event. A nil l
// removes every listener of event. Unknown events and listeners are ignored.
func (h *Hub) Off(event string, l *Listener) {
	ls, ok := h.listeners[event]
	if !ok {
		return
	}
	if l == nil {
		delete(h.listeners, event)
		h.log().Trace("listeners cleared", "event", event, "removed", len(ls))
		return
	}
	for i := len(ls) - 1; i >= 0; i-- {
		if ls[i] != l {
			continue
		}
		ls = append(ls[:i], ls[i+1:]...)
		if len(ls) == 0 {
			delete(h.listeners, event)
		} else {
			h.listeners[event] = ls
		}
		h.log().Trace("listener removed", "event", event, "count", len(ls))
		return
	}
}

// Emit calls every listener registered for event, in registration order,
// with args. The listener list is copied before dispatch: listeners removed
// while Emit runs still fire in this call and listeners added while it runs
// do not.
//
// The first listener error stops the dispatch and is returned as is.
func (h *Hub) Emit(event string, args ...any) error {
	ls := h.listeners[event]
	if len(ls) == 0 {
		return nil
	}
	snapshot := make([]*Listener, len(ls))
	copy(snapshot, ls)

	h.log().Trace("emit", "event", event, "listeners", len(snapshot), "args", len(args))
	for i, l := range snapshot {
		if err := l.call(h, args); err != nil {
			h.log().Trace("dispatch aborted", "event", event, "index", i, "error", err)
			return err
		}
	}
	return nil
}

// ListenerCount returns the number of registrations for event.
func (h *Hub) ListenerCount(event string) int {
	return len(h.listeners[event])
}

// Events returns the sorted names of events with at least one listener.
func (h *Hub) Events() []string {
	names := make([]string, 0, len(h.listeners))
	for name := range h.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
