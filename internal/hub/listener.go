package hub

// Handler is the function behind a Listener. h is the hub running the
// dispatch and args are the values passed to Emit.
//
// When a type embeds Hub, h is the embedded *Hub, not the embedding value.
// Handlers that need the owner, such as an fsm.Machine, capture it in a
// closure.
type Handler func(h *Hub, args ...any) error

// Listener is a registration handle. Two handles are the same listener only
// if they are the same pointer, so keep the value returned by On to remove it
// later with Off.
type Listener struct {
	fn Handler
}

// NewListener wraps fn in a new handle.
func NewListener(fn Handler) *Listener {
	return &Listener{fn: fn}
}

func (l *Listener) call(h *Hub, args []any) error {
	if l.fn == nil {
		return nil
	}
	return l.fn(h, args...)
}

// onceWrapper returns a handle that removes itself from event before calling
// l, and never calls l more than once.
func onceWrapper(event string, l *Listener) *Listener {
	var fired bool
	w := &Listener{}
	w.fn = func(h *Hub, args ...any) error {
		h.Off(event, w)
		if fired {
			return nil
		}
		fired = true
		return l.call(h, args)
	}
	return w
}
