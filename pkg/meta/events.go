package meta

import "sync"

// EventAfterFetch is emitted by models after a successful fetch with the full response.
const EventAfterFetch = "fetch, after"

// Handler receives the positional arguments passed to Emit.
type Handler func(args ...any)

type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]Handler)}
}

// On appends handler to the list for event. Duplicates are kept and each fires.
func (m *Meta) On(event string, handler Handler) {
	if handler == nil {
		return
	}
	m.listeners.mu.Lock()
	defer m.listeners.mu.Unlock()
	m.listeners.handlers[event] = append(m.listeners.handlers[event], handler)
}

// Emit calls every handler registered for event in registration order. Handlers added
// while an emission is running are picked up by the next one.
func (m *Meta) Emit(event string, args ...any) {
	m.listeners.mu.RLock()
	handlers := append([]Handler(nil), m.listeners.handlers[event]...)
	m.listeners.mu.RUnlock()

	for _, handler := range handlers {
		handler(args...)
	}
}

// Listeners returns the number of handlers registered for event.
func (m *Meta) Listeners(event string) int {
	m.listeners.mu.RLock()
	defer m.listeners.mu.RUnlock()
	return len(m.listeners.handlers[event])
}
