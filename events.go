package rets

import (
	"sync"
	"time"
)

// Operation kinds. Every client operation publishes exactly one event whose
// topic is the kind followed by ".success" or ".failure".
const (
	KindConnection     = "connection"
	KindLogout         = "logout"
	KindMetadata       = "metadata"
	KindSystem         = "metadata.system"
	KindResources      = "metadata.resources"
	KindClass          = "metadata.class"
	KindAllClass       = "metadata.all.class"
	KindTable          = "metadata.table"
	KindAllTable       = "metadata.all.table"
	KindLookups        = "metadata.lookups"
	KindAllLookups     = "metadata.all.lookups"
	KindLookupTypes    = "metadata.lookupTypes"
	KindAllLookupTypes = "metadata.all.lookupTypes"
	KindObject         = "metadata.object"
)

const (
	outcomeSuccess = ".success"
	outcomeFailure = ".failure"
	allTopics      = "*"
)

// SuccessTopic returns the success topic of an operation kind.
func SuccessTopic(kind string) string { return kind + outcomeSuccess }

// FailureTopic returns the failure topic of an operation kind.
func FailureTopic(kind string) string { return kind + outcomeFailure }

// Event is the outcome of one client operation.
type Event struct {
	Topic string // kind + ".success" or ".failure"
	Kind  string
	// Data is the operation result; its type is the result type of the
	// method that published the event. Nil on failure.
	Data any
	// Err is the failure. A logout event is always a success and carries the
	// server round-trip error here, if there was one.
	Err  error
	Time time.Time
}

// Success reports whether the event is on a success topic.
func (e Event) Success() bool {
	return e.Topic == SuccessTopic(e.Kind)
}

type subscription struct {
	id   uint64
	fn   func(Event)
	once bool
}

// EventBus delivers operation outcomes to subscribers.
//
// Handlers run synchronously on the goroutine that completes the operation,
// in subscription order, before the operation returns. A handler must not
// call back into the client operation that published the event.
type EventBus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]*subscription
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string][]*subscription)}
}

// Subscribe registers fn for topic and returns a function that removes it.
//
// topic is a full topic ("metadata.class.success"), an operation kind
// ("metadata.class", both outcomes) or "*" for every event.
func (b *EventBus) Subscribe(topic string, fn func(Event)) (cancel func()) {
	return b.add(topic, fn, false)
}

// Once is like Subscribe but the handler is removed after its first call.
func (b *EventBus) Once(topic string, fn func(Event)) (cancel func()) {
	return b.add(topic, fn, true)
}

func (b *EventBus) add(topic string, fn func(Event), once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, fn: fn, once: once}
	b.subs[topic] = append(b.subs[topic], sub)

	return func() { b.remove(topic, sub.id) }
}

func (b *EventBus) remove(topic string, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			return true
		}
	}
	return false
}

// Publish delivers e to the subscribers of its topic, of its kind, and of
// "*", in that order.
func (b *EventBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	for _, topic := range []string{e.Topic, e.Kind, allTopics} {
		b.mu.Lock()
		subs := append([]*subscription(nil), b.subs[topic]...)
		b.mu.Unlock()

		for _, s := range subs {
			// A once handler fires only if this call is the one removing it.
			if s.once && !b.remove(topic, s.id) {
				continue
			}
			s.fn(e)
		}
	}
}

// publish reports the outcome of an operation of the given kind.
func (c *Client) publish(kind string, data any, err error) {
	e := Event{Kind: kind, Err: err}
	if err != nil {
		e.Topic = FailureTopic(kind)
	} else {
		e.Topic = SuccessTopic(kind)
		e.Data = data
	}
	c.events.Publish(e)
}
