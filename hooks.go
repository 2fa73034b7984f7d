package record

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// --- Event System ---

// EventType defines the type for lifecycle events.
type EventType string

// Standard lifecycle event types
const (
	EventTypeBeforeSave   EventType = "BeforeSave"
	EventTypeAfterSave    EventType = "AfterSave"
	EventTypeBeforeCreate EventType = "BeforeCreate"
	EventTypeAfterCreate  EventType = "AfterCreate"
	EventTypeBeforeDelete EventType = "BeforeDelete"
	EventTypeAfterDelete  EventType = "AfterDelete"
)

// EventListener defines the signature for functions that can listen to events.
// model is the entity pointer; eventData carries event specific details
// (the changed column names for saves, nil otherwise).
type EventListener func(ctx context.Context, eventType EventType, model interface{}, eventData interface{}) error

// listenerRegistry holds the registered listeners for each event type.
type listenerRegistry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// RegisterListener adds a listener function for a specific event type.
// Listeners run in registration order for every model bound to db.
func (db *Database) RegisterListener(eventType EventType, listener EventListener) {
	db.events.mu.Lock()
	defer db.events.mu.Unlock()
	if db.events.listeners == nil {
		db.events.listeners = make(map[EventType][]EventListener)
	}
	db.events.listeners[eventType] = append(db.events.listeners[eventType], listener)
}

// triggerEvent executes all registered listeners for a given event type,
// stopping at the first error.
func (db *Database) triggerEvent(ctx context.Context, eventType EventType, model Entity, eventData interface{}) error {
	db.events.mu.RLock()
	listeners := db.events.listeners[eventType]
	db.events.mu.RUnlock()

	for _, listener := range listeners {
		if err := listener(ctx, eventType, model, eventData); err != nil {
			db.logger.Warn("event listener failed",
				zap.String("event", string(eventType)),
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Int64("id", model.base().ID),
				zap.Error(err))
			return fmt.Errorf("event listener for %s failed: %w", eventType, err)
		}
	}
	return nil
}

// triggerAfter runs after-event listeners; their errors are logged only
// because the write has already been committed.
func (db *Database) triggerAfter(ctx context.Context, eventType EventType, model Entity, eventData interface{}) {
	_ = db.triggerEvent(ctx, eventType, model, eventData)
}
