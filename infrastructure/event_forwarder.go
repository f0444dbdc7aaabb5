package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wagerbook/events"

	log "github.com/sirupsen/logrus"
)

// MessagePublisher sends a payload on a subject
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// EventForwarder relays committed events from the in-process bus to a message broker
type EventForwarder struct {
	publisher MessagePublisher
	prefix    string
}

// NewEventForwarder creates a forwarder that publishes under prefix
func NewEventForwarder(publisher MessagePublisher, prefix string) *EventForwarder {
	return &EventForwarder{
		publisher: publisher,
		prefix:    strings.TrimSuffix(prefix, "."),
	}
}

// Subscribe registers the forwarder on bus for every event type it relays
func (f *EventForwarder) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeOperationRecorded, f.handle)
	bus.Subscribe(events.EventTypeUserCreated, f.handle)
}

// Subject returns the subject an event is published on
func (f *EventForwarder) Subject(event events.Event) string {
	switch e := event.(type) {
	case events.OperationRecordedEvent:
		return fmt.Sprintf("%s.operations.%s", f.prefix, strings.ToLower(string(e.OperationType)))
	case events.UserCreatedEvent:
		return f.prefix + ".users.created"
	default:
		return fmt.Sprintf("%s.%s", f.prefix, event.Type())
	}
}

func (f *EventForwarder) handle(ctx context.Context, event events.Event) {
	subject := f.Subject(event)

	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to encode event")
		return
	}

	if err := f.publisher.Publish(subject, data); err != nil {
		log.WithError(err).WithField("subject", subject).Error("Failed to forward event")
		return
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"eventType": event.Type(),
	}).Debug("Forwarded event")
}
