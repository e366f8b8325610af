package session

// EventType defines the type of session event
type EventType string

const (
	EventLoaded   EventType = "loaded"
	EventDirty    EventType = "dirty"
	EventApplied  EventType = "applied"
	EventSnapshot EventType = "snapshot_created"
)

// Event reports a lifecycle transition
type Event struct {
	Type       EventType `json:"type"`
	State      State     `json:"state"`
	Generation uint64    `json:"generation"`
}

// Subscribe registers a channel receiving session events. Sends never
// block; a subscriber that falls behind misses events.
func (s *Session) Subscribe(ch chan<- Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, ch)
}

// publish runs with s.mu held
func (s *Session) publish(event Event) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
