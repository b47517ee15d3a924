package notifications

import (
	"sync"
	"time"
)

// EventType represents the type of notification event
type EventType string

const (
	EventConnected      EventType = "connected"
	EventSessionsSynced EventType = "sessions-synced"
	EventSessionChanged EventType = "session-changed"
	EventTasksChanged   EventType = "tasks-changed"
	EventUserChanged    EventType = "user-changed"
)

// Session operations carried by EventSessionChanged
const (
	OpCreated = "created"
	OpDeleted = "deleted"
	OpRenamed = "renamed"
	OpMessage = "message"
)

// Event represents a notification event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Service fans events out to SSE subscribers
type Service struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewService creates a new notification service
func NewService() *Service {
	return &Service{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe creates a new subscription channel.
// Returns the event channel and an unsubscribe function.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 10)

	s.mu.Lock()
	if s.closed {
		close(ch)
	} else {
		s.subscribers[ch] = struct{}{}
	}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only close if the channel is still in subscribers map
		if _, exists := s.subscribers[ch]; exists {
			delete(s.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Notify broadcasts an event to all subscribers
func (s *Service) Notify(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip this subscriber
		}
	}
}

// NotifySessionsSynced reports a re-sync of the history cache
func (s *Service) NotifySessionsSynced(conversations int) {
	s.Notify(Event{
		Type: EventSessionsSynced,
		Data: map[string]any{"conversations": conversations},
	})
}

// NotifySessionChanged reports one session being created, renamed,
// deleted or extended
func (s *Service) NotifySessionChanged(sessionID, operation string) {
	s.Notify(Event{
		Type:      EventSessionChanged,
		SessionID: sessionID,
		Data:      map[string]any{"operation": operation},
	})
}

// NotifyTasksChanged reports an edit to a session's task list
func (s *Service) NotifyTasksChanged(sessionID string) {
	s.Notify(Event{Type: EventTasksChanged, SessionID: sessionID})
}

// NotifyUserChanged reports an update to the user memory
func (s *Service) NotifyUserChanged() {
	s.Notify(Event{Type: EventUserChanged})
}

// Shutdown closes every subscriber channel. Later subscriptions get a
// closed channel.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan Event]struct{})
}

// SubscriberCount returns the number of active subscribers
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
