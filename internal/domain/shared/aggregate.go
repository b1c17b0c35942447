package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh id and both timestamps with now
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *BaseEntity) GetID() uuid.UUID { return e.ID }

// Touch moves UpdatedAt forward
func (e *BaseEntity) Touch(now time.Time) { e.UpdatedAt = now }

// BaseAggregateRoot adds the optimistic-lock version and the events raised since the last save.
// Repositories write the events to the outbox in the save transaction, then clear them.
type BaseAggregateRoot struct {
	BaseEntity
	Version int

	pending []DomainEvent
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

func (a *BaseAggregateRoot) GetVersion() int  { return a.Version }
func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent queues ev until the next save
func (a *BaseAggregateRoot) AddDomainEvent(ev DomainEvent) { a.pending = append(a.pending, ev) }

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent { return a.pending }
func (a *BaseAggregateRoot) ClearDomainEvents()             { a.pending = nil }
