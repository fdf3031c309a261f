package events

import (
	"reflect"
	"sync"
)

// EventHandler defines a function type where its input type is the generic type.
type EventHandler[T any] func(T) error

// globalEventHandlers describes a mapping of event types to EventHandler objects. These callbacks are called
// any time any EventEmitter publishes an event of that type.
var globalEventHandlers = make(map[reflect.Type][]any)

// globalEventHandlersLock is a lock that provides thread synchronization when accessing globalEventHandlers.
var globalEventHandlersLock sync.RWMutex

// SubscribeAny adds an EventHandler to the list of global EventHandler objects for this a given event data type.
// When an event is published, the callback will be triggered with the event data.
// Note: An EventHandler subscribed here will remain throughout program execution. Objects which should be freed from
// memory should not use this method to avoid memory leaks.
func SubscribeAny[T any](callback EventHandler[T]) {
	// Reflect on a nil object to get the generic type.
	eventType := reflect.TypeOf((*T)(nil)).Elem()

	globalEventHandlersLock.Lock()
	defer globalEventHandlersLock.Unlock()
	globalEventHandlers[eventType] = append(globalEventHandlers[eventType], callback)
}

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when the event type (generic)
// is published. It additionally provides methods for publishing events. The zero value is ready to use and an
// EventEmitter is safe for concurrent use.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods which should be invoked when a new event is published to this
	// emitter.
	subscriptions []EventHandler[T]

	// lock guards subscriptions.
	lock sync.RWMutex
}

// Publish emits the provided event by calling every EventHandler subscribed to this emitter, then every one
// subscribed through SubscribeAny. Returns the first error a handler returns, in which case later handlers are not
// called.
func (e *EventEmitter[T]) Publish(event T) error {
	// Call every subscribed EventHandler
	e.lock.RLock()
	subscriptions := append([]EventHandler[T](nil), e.subscriptions...)
	e.lock.RUnlock()
	for _, subscription := range subscriptions {
		if err := subscription(event); err != nil {
			return err
		}
	}

	// Call all relevant global event handlers.
	globalEventHandlersLock.RLock()
	callbacks := append([]any(nil), globalEventHandlers[reflect.TypeOf((*T)(nil)).Elem()]...)
	globalEventHandlersLock.RUnlock()
	for _, callback := range callbacks {
		if err := callback.(EventHandler[T])(event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter. When an event is
// published, the callback will be triggered with the event data.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.subscriptions = append(e.subscriptions, callback)
}
