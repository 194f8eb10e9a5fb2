package events

import (
	"context"
	"sync"

	"boatbet/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePointsChanged       EventType = "points_changed"
	EventTypePredictionPublished EventType = "prediction_published"
	EventTypePredictionPurchased EventType = "prediction_purchased"
	EventTypePredictionSettled   EventType = "prediction_settled"
	EventTypeRaceResultRecorded  EventType = "race_result_recorded"
)

// AllEventTypes lists every event type raised by the services
func AllEventTypes() []EventType {
	return []EventType{
		EventTypePointsChanged,
		EventTypePredictionPublished,
		EventTypePredictionPurchased,
		EventTypePredictionSettled,
		EventTypeRaceResultRecorded,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PointsChangedEvent is raised for every ledger-governed balance change
type PointsChangedEvent struct {
	UserID       string                   `json:"userId"`
	PredictionID string                   `json:"predictionId"`
	Action       models.TransactionAction `json:"action"`
	OldPoints    int64                    `json:"oldPoints"`
	NewPoints    int64                    `json:"newPoints"`
	ChangeAmount int64                    `json:"changeAmount"`
}

func (e PointsChangedEvent) Type() EventType {
	return EventTypePointsChanged
}

// PredictionPublishedEvent is raised when an author publishes a prediction
type PredictionPublishedEvent struct {
	PredictionID string         `json:"predictionId"`
	AuthorID     string         `json:"authorId"`
	Race         models.RaceKey `json:"race"`
	Price        int64          `json:"price"`
}

func (e PredictionPublishedEvent) Type() EventType {
	return EventTypePredictionPublished
}

// PredictionPurchasedEvent is raised when a buyer unlocks a paid prediction.
// The author is notified of the sale.
type PredictionPurchasedEvent struct {
	PredictionID string `json:"predictionId"`
	Title        string `json:"title"`
	BuyerID      string `json:"buyerId"`
	BuyerName    string `json:"buyerName"`
	AuthorID     string `json:"authorId"`
	Price        int64  `json:"price"`
}

func (e PredictionPurchasedEvent) Type() EventType {
	return EventTypePredictionPurchased
}

// PredictionSettledEvent is raised once per prediction when settlement writes its outcome
type PredictionSettledEvent struct {
	PredictionID string         `json:"predictionId"`
	AuthorID     string         `json:"authorId"`
	Race         models.RaceKey `json:"race"`
	IsHit        bool           `json:"isHit"`
	RefundAmount int64          `json:"refundAmount"`
}

func (e PredictionSettledEvent) Type() EventType {
	return EventTypePredictionSettled
}

// RaceResultRecordedEvent is raised when an official result is stored
type RaceResultRecordedEvent struct {
	Race   models.RaceKey `json:"race"`
	Source string         `json:"source"`
}

func (e RaceResultRecordedEvent) Type() EventType {
	return EventTypeRaceResultRecorded
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
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
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run asynchronously
// and a panicking handler is logged without affecting the others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
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

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits, then hands them to the real bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit. Events get a fresh context since
// the request context may already be cancelled.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
