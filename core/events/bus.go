// Package events delivers property change notifications.
//
// Objects publish one event per assignment that changes a value. Event
// names have the form "<Type>.<property>", so a subscriber can watch one
// property of one type, every property of a type ("Plot.*"), one property
// name on any type ("*.line_color") or everything ("*").
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Event is one property change.
type Event struct {
	// Name is "<Type>.<property>", e.g. "Plot.title".
	Name string

	// Type is the name of the type of the changed object.
	Type string

	// Action is "set" for ordinary assignment and "wire" for updates
	// applied from wire form.
	Action string

	// Data carries the object id, the property and the old and new values.
	Data map[string]any

	Meta map[string]any
}

// Property returns the property part of the event name.
func (e Event) Property() string {
	_, prop, _ := strings.Cut(e.Name, ".")
	return prop
}

// Handler processes an event.
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   uint64
	logger   zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]subscription),
		logger:   logger,
	}
}

// Subscribe registers handler for a pattern and returns a function that
// removes it. Patterns:
//   - "Plot.title" - exact match
//   - "Plot.*"     - every property of Plot
//   - "*.title"    - title on any type
//   - "*"          - all events
func (b *Bus) Subscribe(pattern string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[pattern] = append(b.handlers[pattern], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[pattern]
		for i, s := range subs {
			if s.id == id {
				b.handlers[pattern] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.handlers[pattern]) == 0 {
			delete(b.handlers, pattern)
		}
	}
}

// Publish calls every matching handler in order: exact subscribers first,
// then type wildcards, property wildcards and global subscribers. Handler
// errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("type", event.Type).
		Str("action", event.Action).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, s := range matched {
		if err := s.handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// PublishAsync runs Publish in a goroutine and returns immediately.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	go b.Publish(ctx, event)
}

// HasSubscribers reports whether publishing name would reach any handler.
func (b *Bus) HasSubscribers(name string) bool {
	return len(b.match(name)) > 0
}

// match snapshots the handlers for name so delivery runs without the lock
// and handlers may subscribe or unsubscribe.
func (b *Bus) match(name string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []subscription
	matched = append(matched, b.handlers[name]...)
	if typ, prop, ok := strings.Cut(name, "."); ok {
		if name != typ+".*" {
			matched = append(matched, b.handlers[typ+".*"]...)
		}
		if name != "*."+prop {
			matched = append(matched, b.handlers["*."+prop]...)
		}
	}
	if name != "*" {
		matched = append(matched, b.handlers["*"]...)
	}
	return matched
}
