// Package events is the broadcast channel between the request layer and the
// session owner. Any component may publish Unauthorized; only the session
// manager publishes SessionExpired.
package events

import "sync"

// Event names a process-wide signal.
type Event string

const (
	// Unauthorized means the backend rejected the current token; force logout.
	Unauthorized Event = "auth:unauthorized"
	// SessionExpired means the session has ended involuntarily; show the
	// expiration notice.
	SessionExpired Event = "auth:session-expired"
)

// Handler reacts to a published event.
type Handler func(Event)

// Publisher is the side of the notifier the request layer depends on.
type Publisher interface {
	Publish(event Event)
}

// Subscriber is the side of the notifier the session manager depends on.
type Subscriber interface {
	Subscribe(event Event, handler Handler) (unsubscribe func())
}

// Notifier is a synchronous in-process pub/sub.
type Notifier struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Event]map[uint64]Handler
}

var (
	_ Publisher  = (*Notifier)(nil)
	_ Subscriber = (*Notifier)(nil)
)

func NewNotifier() *Notifier {
	return &Notifier{handlers: make(map[Event]map[uint64]Handler)}
}

// Subscribe registers handler for event. The returned func removes it and is
// safe to call more than once.
func (n *Notifier) Subscribe(event Event, handler Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	if n.handlers[event] == nil {
		n.handlers[event] = make(map[uint64]Handler)
	}
	n.handlers[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.handlers[event], id)
		})
	}
}

// Publish calls every handler for event on the caller's goroutine. Handlers
// run without the notifier lock held so they may publish or unsubscribe.
func (n *Notifier) Publish(event Event) {
	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.handlers[event]))
	for _, h := range n.handlers[event] {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
