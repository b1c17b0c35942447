package event

import (
	"context"
	"fmt"

	"github.com/garmentflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher turns domain events into outbox rows inside the aggregate's transaction
type OutboxPublisher struct {
	serializer *EventSerializer
}

func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx inserts one PENDING row per event using tx; the rows commit or roll back with it
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return fmt.Errorf("outbox %s: %w", ev.EventType(), err)
		}
		entries = append(entries, shared.NewOutboxEntry(ev, payload))
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents satisfies shared.OutboxEventSaver; tx must be the repository's *gorm.DB transaction
func (p *OutboxPublisher) SaveEvents(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox needs a *gorm.DB transaction, got %T", tx)
	}
	return p.PublishWithTx(ctx, db, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
