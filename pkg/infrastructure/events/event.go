// Package events keeps an append-only log of what runs and stock uploads did.
// The log is readable per stream or globally and fans new entries out to
// subscribed handlers.
package events

import (
	"time"
)

// Payload is the typed body of an event. It names its own type and the stream
// it belongs to.
type Payload interface {
	EventType() string
	StreamID() string
}

// Event is one stored log entry. Version counts from 1 within Stream;
// Position counts from 0 across every stream and is never reused.
type Event struct {
	Position  int       `json:"position"`
	Version   int       `json:"version"`
	Type      string    `json:"type"`
	Stream    string    `json:"stream"`
	Data      Payload   `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler is called once per stored event of a subscribed type
type Handler func(Event) error

type EventStore interface {
	// AppendEvent stores data at the end of its stream and returns the stored event
	AppendEvent(data Payload) (Event, error)
	// ReadEvents returns the retained events of stream from version fromVersion on
	ReadEvents(stream string, fromVersion int) ([]Event, error)
	// ReadAllEvents returns the retained events from global position fromPosition on
	ReadAllEvents(fromPosition int) ([]Event, error)
	// Subscribe registers handler for eventTypes, or every type when none are
	// given. The returned func removes it.
	Subscribe(handler Handler, eventTypes ...string) (unsubscribe func())
}
