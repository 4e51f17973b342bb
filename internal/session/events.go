package session

import (
	"xray-cbt/internal/item"
)

// EventType identifies controller notifications.
type EventType int

const (
	EventItemStarted EventType = iota // data: item.Baggage
	EventAnswered                     // data: Result
	EventAFKWarning                   // data: int strike count
	EventHalted                       // data: error
	EventFinished                     // data: scoring.Summary
)

// Result describes how one item was scored.
type Result struct {
	Item    item.Baggage
	Chosen  int
	Correct bool
	Missed  bool // the item left the belt unanswered
}

// Listener is called when an event occurs. Listeners run on the goroutine
// driving Tick and must not block.
type Listener func(data any)

// On registers a listener for the specified event type.
func (c *Controller) On(event EventType, listener Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[event] = append(c.listeners[event], listener)
}

// emit triggers all listeners for the specified event type.
func (c *Controller) emit(event EventType, data any) {
	c.mu.RLock()
	listeners := c.listeners[event]
	c.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
