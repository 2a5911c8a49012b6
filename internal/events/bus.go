// Package events implements the typed publish/subscribe bus (an
// observer list, not a Go channel) that decouples the Job Queue and Socket Session from the shell
// that ultimately displays their activity (Design Note in SPEC_FULL.md
// "Callback/event orchestration"). It replaces the source system's
// event-emitter with a Go-native observer registry.
package events

import "sync"

// Name identifies an event kind. The core orchestrator and its
// subsystems publish under these names; the shell (or tests) subscribe.
type Name string

const (
	// Job Queue events
	JobQueued       Name = "job-queued"
	JobProcessing   Name = "job-processing"
	JobCompleted    Name = "job-completed"
	JobFailed       Name = "job-failed"
	JobRetrying     Name = "job-retrying"
	JobExpired      Name = "job-expired"
	JobCancelled    Name = "job-cancelled"
	JobDeduplicated Name = "job-deduplicated"

	// Socket Session events
	Connected        Name = "connected"
	Disconnected     Name = "disconnected"
	Reconnecting     Name = "reconnecting"
	ReconnectFailed  Name = "reconnect-failed"
	Reconnected      Name = "reconnected"
	AuthError        Name = "auth-error"

	// Cross-cutting
	Error   Name = "error"
	Warning Name = "warning"
	Info    Name = "info"
)

// Event is one published occurrence. Payload is whatever the
// publisher chose to attach (a queue entry, a printer descriptor, an
// error string, ...); subscribers type-assert what they expect.
type Event struct {
	Name    Name
	Payload interface{}
}

// Handler receives published events. Handlers run synchronously on
// the publisher's goroutine in the order they were subscribed, so a
// slow handler can back-pressure publishing — subscribers that do
// nontrivial work should hand off to their own goroutine.
type Handler func(Event)

// Bus is a simple observer registry, safe for concurrent use. It is
// deliberately not a Go channel: the source's event-emitter fans one
// event out to an arbitrary number of listeners, which an observer
// list models more directly than a channel (which has exactly one
// reader per value).
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	wildcard []Handler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[Name][]Handler)}
}

// On subscribes handler to a specific event name.
func (b *Bus) On(name Name, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// OnAny subscribes handler to every event published on this bus,
// used by the shell to drive a generic activity log.
func (b *Bus) OnAny(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, handler)
}

// Emit publishes an event synchronously to every matching subscriber.
func (b *Bus) Emit(name Name, payload interface{}) {
	b.mu.RLock()
	specific := append([]Handler(nil), b.handlers[name]...)
	wildcard := append([]Handler(nil), b.wildcard...)
	b.mu.RUnlock()

	evt := Event{Name: name, Payload: payload}
	for _, h := range specific {
		h(evt)
	}
	for _, h := range wildcard {
		h(evt)
	}
}
