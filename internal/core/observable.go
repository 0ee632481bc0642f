package core

import "go-event-hub/internal/hub"

// Observable is implemented by *hub.Hub and by any type embedding it.
type Observable interface {
	On(event string, l *hub.Listener) *hub.Listener
	Once(event string, l *hub.Listener)
	Off(event string, l *hub.Listener)
	Emit(event string, args ...any) error
}

var _ Observable = (*hub.Hub)(nil)
