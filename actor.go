package votally

import "sync"

// Buffer size to instantiate actor channels with
const actorEventBufferSize = 1024

// Actor objects listen for events (messages) and then can create more actors,
// send more messages or make local decisions that modify their own private
// state. Actors implement lockless concurrent operation on that state:
// concurrency is based on the fact that only a single actor is initialized
// and reads event objects one at a time off of a buffered channel. All actor
// methods should be private as a result so they are not called from other
// threads.
type Actor interface {
	Listen() error        // Run the actor model listen for events and handle them
	Close() error         // Stop the actor from receiving new events (handles remaining pending events)
	Dispatch(Event) error // Outside callers can dispatch events to the actor
	Handle(Event) error   // Handler method for each event in sequence
}

// NewActor returns a new simple actor that passes events one at a time to the
// callback function specified by looping on an internal buffered channel so
// that event dispatchers are not blocked.
func NewActor(callback Callback) Actor {
	return &actor{
		handler: callback,
		events:  make(chan Event, actorEventBufferSize),
	}
}

// A simple implementation of an actor object that can be embedded into other
// objects so they only have to implement the Handle method to meet the
// interface requirements. The read lock is held by dispatchers while they
// enqueue so that Close can never race a send on the closed channel.
type actor struct {
	sync.RWMutex
	handler Callback
	events  chan Event
	closed  bool
}

// Listen for events, handling them with the default callback handler. If the
// callback returns an error, then Listen will return with that error. If the
// actor is closed externally, then Listen will finish all remaining events
// and return nil.
func (a *actor) Listen() error {
	// Continue reading events off the channel until its closed
	for event := range a.events {
		if err := a.Handle(event); err != nil {
			return err
		}
	}

	return nil
}

// Close the actor by shutting down the events channel, allowing the listener
// to complete all remaining events then stop listening gracefully. Once
// closed, dispatchers receive ErrActorClosed instead of enqueueing.
func (a *actor) Close() error {
	a.Lock()
	defer a.Unlock()

	if a.closed {
		return ErrActorClosed
	}

	a.closed = true
	close(a.events)
	return nil
}

// Dispatch an event on the actor for the listener to handle.
func (a *actor) Dispatch(e Event) error {
	a.RLock()
	defer a.RUnlock()

	if a.closed {
		return ErrActorClosed
	}

	a.events <- e
	return nil
}

// Handle each event by passing it to the callback function.
func (a *actor) Handle(e Event) error {
	return a.handler(e)
}
