package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/domain"
)

// EventStore keeps events in process. Events are seeded from the catalog file.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]domain.Event
}

func NewEventStore(events ...domain.Event) *EventStore {
	s := &EventStore{events: make(map[string]domain.Event, len(events))}
	for _, e := range events {
		e.SessionIDs = append([]string{}, e.SessionIDs...)
		s.events[e.ID] = e
	}
	return s
}

func (s *EventStore) GetEvent(_ context.Context, eventID string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	event.SessionIDs = append([]string{}, event.SessionIDs...)
	return event, nil
}

func (s *EventStore) AddSession(_ context.Context, eventID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	for _, id := range event.SessionIDs {
		if id == sessionID {
			return nil
		}
	}
	event.SessionIDs = append(event.SessionIDs, sessionID)
	s.events[eventID] = event
	return nil
}

func (s *EventStore) RemoveSession(_ context.Context, eventID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	kept := event.SessionIDs[:0]
	for _, id := range event.SessionIDs {
		if id != sessionID {
			kept = append(kept, id)
		}
	}
	event.SessionIDs = kept
	s.events[eventID] = event
	return nil
}
