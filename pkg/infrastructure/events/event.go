package events

import (
	"time"
)

// Event is one change on a stream: a cut job, a sales order or the
// reconcile log
type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// Publisher is the write side services depend on. A nil Publisher turns
// publishing off.
type Publisher interface {
	AppendEvent(streamID string, event Event) error
}

// EventStore keeps per-stream event history and fans events out to subscribers
type EventStore interface {
	Publisher
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// record is the Event built by every constructor in this package
type record struct {
	kind    string
	stream  string
	payload interface{}
	at      time.Time
	version int
}

func (r record) Type() string { return r.kind }
func (r record) StreamID() string { return r.stream }
func (r record) Data() interface{} { return r.payload }
func (r record) Timestamp() time.Time { return r.at }
func (r record) Version() int { return r.version }

// restamp copies any Event onto stream with the version the store assigned
func restamp(event Event, stream string, version int) record {
	return record{
		kind:    event.Type(),
		stream:  stream,
		payload: event.Data(),
		at:      event.Timestamp(),
		version: version,
	}
}

func NewEvent(eventType, streamID string, data interface{}) Event {
	return NewEventAt(eventType, streamID, data, time.Now())
}

// NewEventAt stamps the event with the time the change happened
func NewEventAt(eventType, streamID string, data interface{}, at time.Time) Event {
	return record{kind: eventType, stream: streamID, payload: data, at: at, version: 1}
}
