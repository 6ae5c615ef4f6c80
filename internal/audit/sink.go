package audit

import (
	"sort"

	"go.uber.org/zap"
)

// Sink receives security events
type Sink interface {
	Log(event string, details map[string]interface{})
}

// ZapSink writes security events to a zap logger
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink logging under the "security" component
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.With(zap.String("component", "security"))}
}

// Log writes one event
func (s *ZapSink) Log(event string, details map[string]interface{}) {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(details)+1)
	fields = append(fields, zap.String("event", event))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, details[k]))
	}
	s.logger.Info("security event", fields...)
}

// Multi fans an event out to several sinks
type Multi []Sink

// Log forwards the event to every sink
func (m Multi) Log(event string, details map[string]interface{}) {
	for _, s := range m {
		if s != nil {
			s.Log(event, details)
		}
	}
}

// Nop discards events
type Nop struct{}

// Log does nothing
func (Nop) Log(string, map[string]interface{}) {}
