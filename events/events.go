package events

import (
	"context"
	"sync"
	"time"

	"wagerbook/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeOperationRecorded EventType = "operation_recorded"
	EventTypeUserCreated       EventType = "user_created"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// OperationRecordedEvent is emitted once an operation and its links are committed
type OperationRecordedEvent struct {
	OperationID       uuid.UUID            `json:"operationId"`
	OperationType     models.OperationType `json:"operationType"`
	UserID            uuid.UUID            `json:"userId"`
	SlackHandle       string               `json:"slackHandle"`
	WagerID           uuid.UUID            `json:"wagerId"`
	WagerSequentialID int64                `json:"wagerSequentialId"`
	WagerStatus       models.WagerStatus   `json:"wagerStatus"`
	RecordedAt        time.Time            `json:"recordedAt"`
}

func (e OperationRecordedEvent) Type() EventType {
	return EventTypeOperationRecorded
}

// UserCreatedEvent represents a user row created by find-or-create
type UserCreatedEvent struct {
	UserID      uuid.UUID `json:"userId"`
	SlackHandle string    `json:"slackHandle"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
	closed   bool
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		log.WithField("eventType", event.Type()).Warn("Dropping event emitted after the event bus closed")
		return
	}
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	// Counted under the read lock so Close cannot start waiting between the check and the Add
	b.wg.Add(len(handlers))
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned.
// It must not run concurrently with Emit; shutdown uses Close.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Close stops the bus from accepting events and waits for in-flight handlers.
// Events emitted after Close are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits. It flushes to the underlying Bus.
type TransactionalBus struct {
	real    *Bus
	mu      sync.Mutex
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	log.WithFields(log.Fields{
		"pendingEventCount": len(pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Events outlive the request that raised them
	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range pending {
		b.real.Emit(eventCtx, ev)
	}
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}
