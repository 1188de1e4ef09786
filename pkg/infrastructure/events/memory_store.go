package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/vsinha/mrpbom/pkg/logger"
)

type subscription struct {
	id      int
	types   map[string]bool
	handler Handler
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// InMemoryEventStore keeps the most recent events in memory. Once the
// retention limit is reached the oldest event is dropped on every append;
// positions and versions keep counting so readers can resume.
type InMemoryEventStore struct {
	mu        sync.RWMutex
	retention int
	now       func() time.Time

	log      []Event
	offset   int
	streams  map[string][]Event
	versions map[string]int

	subs   []subscription
	nextID int
}

var _ EventStore = (*InMemoryEventStore)(nil)

type StoreOption func(*InMemoryEventStore)

// WithRetention keeps at most n events; n <= 0 keeps everything
func WithRetention(n int) StoreOption {
	return func(s *InMemoryEventStore) {
		s.retention = n
	}
}

// WithClock stamps events with now instead of time.Now
func WithClock(now func() time.Time) StoreOption {
	return func(s *InMemoryEventStore) {
		s.now = now
	}
}

func NewInMemoryEventStore(opts ...StoreOption) *InMemoryEventStore {
	s := &InMemoryEventStore{
		now:      time.Now,
		streams:  make(map[string][]Event),
		versions: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendEvent stores data and calls matching handlers synchronously, in
// subscription order, after the store lock is released
func (s *InMemoryEventStore) AppendEvent(data Payload) (Event, error) {
	if data == nil {
		return Event{}, fmt.Errorf("event payload cannot be nil")
	}
	stream := data.StreamID()
	if stream == "" {
		return Event{}, fmt.Errorf("event %s has no stream", data.EventType())
	}

	s.mu.Lock()
	s.versions[stream]++
	event := Event{
		Position:  s.offset + len(s.log),
		Version:   s.versions[stream],
		Type:      data.EventType(),
		Stream:    stream,
		Data:      data,
		Timestamp: s.now(),
	}
	s.log = append(s.log, event)
	s.streams[stream] = append(s.streams[stream], event)
	s.trim()
	handlers := s.handlersFor(event.Type)
	s.mu.Unlock()

	for _, h := range handlers {
		if err := h(event); err != nil {
			logger.Log.Error().Err(err).Str("event", event.Type).Int("position", event.Position).Msg("event handler failed")
		}
	}
	return event, nil
}

// trim drops the oldest events beyond the retention limit. Callers hold mu.
func (s *InMemoryEventStore) trim() {
	if s.retention <= 0 || len(s.log) <= s.retention {
		return
	}
	drop := len(s.log) - s.retention
	for _, old := range s.log[:drop] {
		// the oldest event overall is also the oldest of its stream
		rest := s.streams[old.Stream][1:]
		if len(rest) == 0 {
			delete(s.streams, old.Stream)
		} else {
			s.streams[old.Stream] = rest
		}
	}
	s.log = s.log[drop:]
	s.offset += drop
}

func (s *InMemoryEventStore) handlersFor(eventType string) []Handler {
	var out []Handler
	for _, sub := range s.subs {
		if sub.wants(eventType) {
			out = append(out, sub.handler)
		}
	}
	return out
}

func (s *InMemoryEventStore) ReadEvents(stream string, fromVersion int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.streams[stream]
	if len(events) == 0 {
		return []Event{}, nil
	}
	start := fromVersion - events[0].Version
	if start < 0 {
		start = 0
	}
	if start >= len(events) {
		return []Event{}, nil
	}
	return append([]Event(nil), events[start:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := fromPosition - s.offset
	if start < 0 {
		start = 0
	}
	if start >= len(s.log) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.log[start:]...), nil
}

func (s *InMemoryEventStore) Subscribe(handler Handler, eventTypes ...string) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := subscription{id: s.nextID, handler: handler}
	s.nextID++
	if len(eventTypes) > 0 {
		sub.types = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = true
		}
	}
	s.subs = append(s.subs, sub)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subs {
			if existing.id == sub.id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of retained events
func (s *InMemoryEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}
