package service

import (
	"sync"
)

// EventType defines the type of event
type EventType string

const (
	EventPanelStateSaved EventType = "panelstate_saved"
	EventIntnetsApplied  EventType = "intnets_applied"
	EventSnapshotCreated EventType = "snapshot_created"
	EventSnapshotRenamed EventType = "snapshot_renamed"
	EventSnapshotDeleted EventType = "snapshot_deleted"
	EventPresetsReloaded EventType = "presets_reloaded"
	EventMachinesUpdated EventType = "machines_updated"
	EventMachineDeleted  EventType = "machine_deleted"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	onDrop      func(Event)
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// OnDrop sets a callback invoked for every event a slow subscriber misses
func (eb *EventBus) OnDrop(fn func(Event)) {
	eb.mu.Lock()
	eb.onDrop = fn
	eb.mu.Unlock()
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	eb.subscribers = append(eb.subscribers, ch)
	eb.mu.Unlock()
}

// Unsubscribe removes a subscriber. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers without blocking
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
			if eb.onDrop != nil {
				eb.onDrop(event)
			}
		}
	}
}
