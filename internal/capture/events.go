package capture

import "sync"

// Event names the bridge's observable moments.
type Event string

const (
	// EventSubmitted fires once per __submitCapture call with the raw
	// upstream response text.
	EventSubmitted Event = "capture:submitted"
	// EventClaimURL fires when a submission response yields a claim URL.
	EventClaimURL Event = "capture:claimUrl"
	// EventNextID fires when a submission response carries the next capture id.
	EventNextID Event = "capture:nextId"
	// EventFigmaURL fires when a popup lands on a figma.com URL.
	EventFigmaURL Event = "capture:figmaUrl"
)

// Emitter is a minimal ordered pub/sub for capture events.
type Emitter struct {
	mu       sync.Mutex
	handlers map[Event][]func(string)
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[Event][]func(string))}
}

// On registers a handler for an event.
func (e *Emitter) On(event Event, fn func(string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], fn)
}

// Emit invokes the handlers in registration order on the caller's goroutine.
func (e *Emitter) Emit(event Event, payload string) {
	e.mu.Lock()
	handlers := append([]func(string){}, e.handlers[event]...)
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(payload)
	}
}
