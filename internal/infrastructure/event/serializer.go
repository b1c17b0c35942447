// Package event persists domain events to the transactional outbox and relays them to Kafka.
package event

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
)

// EventSerializer encodes events as JSON and decodes them back by event type.
// Only registered types pass in either direction, so every outbox payload stays decodable.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{types: map[string]func() shared.DomainEvent{}}
}

// Register makes eventType decode into a fresh *E
func Register[E any, P interface {
	*E
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[eventType] = func() shared.DomainEvent { return P(new(E)) }
}

// NewRegisteredSerializer knows every event the order core raises
func NewRegisteredSerializer() *EventSerializer {
	s := NewEventSerializer()
	Register[fulfillment.OrderPlacedEvent](s, fulfillment.EventTypeOrderPlaced)
	for _, t := range []string{
		fulfillment.EventTypeOrderApproved,
		fulfillment.EventTypeOrderRejected,
		fulfillment.EventTypeOrderCancelled,
	} {
		Register[fulfillment.OrderDecisionEvent](s, t)
	}
	Register[fulfillment.OrderTrackingUpdatedEvent](s, fulfillment.EventTypeOrderTrackingUpdated)
	Register[identity.AccountStatusChangedEvent](s, identity.EventTypeAccountStatusChanged)
	Register[identity.AccountRoleChangedEvent](s, identity.EventTypeAccountRoleChanged)
	return s
}

func (s *EventSerializer) factory(eventType string) (func() shared.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	newEvent, ok := s.types[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	return newEvent, nil
}

func (s *EventSerializer) Serialize(ev shared.DomainEvent) ([]byte, error) {
	if _, err := s.factory(ev.EventType()); err != nil {
		return nil, err
	}
	return json.Marshal(ev)
}

func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	newEvent, err := s.factory(eventType)
	if err != nil {
		return nil, err
	}
	ev := newEvent()
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return ev, nil
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	_, err := s.factory(eventType)
	return err == nil
}

// RegisteredTypes lists the known event types sorted by name
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.types))
}
