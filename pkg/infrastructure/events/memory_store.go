package events

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultRetention bounds the events kept in memory by a long running process
const DefaultRetention = 10000

type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	position    int
	allEvents   []Event
	retention   int
	logger      *zap.Logger
}

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		retention:   DefaultRetention,
		logger:      logger,
	}
}

// WithRetention caps the number of events kept; older events are dropped
func (s *InMemoryEventStore) WithRetention(n int) *InMemoryEventStore {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.retention = n
	return s
}

var _ EventStore = (*InMemoryEventStore)(nil)

// AppendEvent records the event and delivers it to subscribers synchronously,
// after the store lock is released, in subscription order
func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	eventWithVersion := restamp(event, streamID, s.nextVersion(streamID))

	s.streams[streamID] = append(s.streams[streamID], eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.position++
	s.trim()

	handlers := append([]EventHandler(nil), s.subscribers[event.Type()]...)
	s.mutex.Unlock()

	s.notifySubscribers(handlers, eventWithVersion)
	return nil
}

func (s *InMemoryEventStore) nextVersion(streamID string) int {
	events := s.streams[streamID]
	if len(events) == 0 {
		return 1
	}
	return events[len(events)-1].Version() + 1
}

// trim drops the oldest events once retention is exceeded. Stream versions
// keep counting from where they were.
func (s *InMemoryEventStore) trim() {
	if s.retention <= 0 || len(s.allEvents) <= s.retention {
		return
	}
	dropped := s.allEvents[:len(s.allEvents)-s.retention]
	s.allEvents = append([]Event(nil), s.allEvents[len(dropped):]...)
	for _, old := range dropped {
		stream := s.streams[old.StreamID()]
		if len(stream) > 1 {
			s.streams[old.StreamID()] = stream[1:]
		}
	}
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	result := make([]Event, 0, len(events))
	for _, event := range events {
		if event.Version() >= fromVersion {
			result = append(result, event)
		}
	}
	return result, nil
}

// ReadAllEvents reads by absolute position; positions of trimmed events are gone
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	offset := s.position - len(s.allEvents)
	index := fromPosition - offset
	if index < 0 {
		index = 0
	}
	if index >= len(s.allEvents) {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[index:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		newHandlers := make([]EventHandler, 0)
		for _, h := range handlers {
			if h != handler {
				newHandlers = append(newHandlers, h)
			}
		}
		s.subscribers[eventType] = newHandlers
	}

	return nil
}

// notifySubscribers never fails the append; handler errors are logged
func (s *InMemoryEventStore) notifySubscribers(handlers []EventHandler, event Event) {
	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			s.logger.Warn("event handler failed",
				zap.String("event", event.Type()),
				zap.String("stream", event.StreamID()),
				zap.Error(err))
		}
	}
}
