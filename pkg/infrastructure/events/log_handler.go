package events

import (
	"go.uber.org/zap"
)

// LogHandler writes every event it receives to a zap logger
type LogHandler struct {
	logger *zap.Logger
	types  map[string]bool
}

// NewLogHandler logs the given event types, or every type when none are given
func NewLogHandler(logger *zap.Logger, eventTypes ...string) *LogHandler {
	h := &LogHandler{logger: logger, types: make(map[string]bool, len(eventTypes))}
	for _, t := range eventTypes {
		h.types[t] = true
	}
	return h
}

func (h *LogHandler) CanHandle(eventType string) bool {
	return len(h.types) == 0 || h.types[eventType]
}

func (h *LogHandler) Handle(event Event) error {
	h.logger.Info("domain event",
		zap.String("type", event.Type()),
		zap.String("stream", event.StreamID()),
		zap.Int("version", event.Version()),
		zap.Time("at", event.Timestamp()),
		zap.Any("data", event.Data()))
	return nil
}
