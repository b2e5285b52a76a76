package keys

import (
	"log/slog"
	"sync"
)

// Handler receives broadcast KeyEvents.
type Handler func(KeyEvent)

// Hub fans out KeyEvents to any number of registered handlers. Unsubscribe
// is safe at any time, including from within a handler — it takes effect on
// the next broadcast.
type Hub struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]Handler
	logger   *slog.Logger
}

// NewHub creates an empty Hub. A nil logger falls back to slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{handlers: make(map[uint64]Handler), logger: logger}
}

// Subscribe registers handler and returns an unsubscribe function.
func (h *Hub) Subscribe(handler Handler) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = handler
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	}
}

// Broadcast delivers ev to a snapshot of the currently-registered handlers.
// A handler that panics is caught and logged; the remaining handlers still
// receive the event.
func (h *Hub) Broadcast(ev KeyEvent) {
	h.mu.Lock()
	snapshot := make([]Handler, 0, len(h.handlers))
	for _, fn := range h.handlers {
		snapshot = append(snapshot, fn)
	}
	h.mu.Unlock()

	for _, fn := range snapshot {
		h.dispatch(fn, ev)
	}
}

func (h *Hub) dispatch(fn Handler, ev KeyEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("key event handler panicked", "recover", r, "event", ev.Name)
		}
	}()
	fn(ev)
}

// Len reports the number of currently-registered handlers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}
