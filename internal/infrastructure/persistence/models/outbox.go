package models

import (
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboxEntryModel is a row of outbox_events
type OutboxEntryModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string              `gorm:"size:255;not null"`
	AggregateID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	AggregateType string              `gorm:"size:255;not null"`
	Payload       []byte              `gorm:"type:jsonb;not null"`
	Status        shared.OutboxStatus `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_status_created,priority:1"`
	RetryCount    int                 `gorm:"not null;default:0"`
	MaxRetries    int                 `gorm:"not null;default:5"`
	LastError     string              `gorm:"type:text"`
	NextRetryAt   *time.Time          `gorm:"index"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (OutboxEntryModel) TableName() string { return "outbox_events" }

// NewOutboxRow maps a domain entry onto a row
func NewOutboxRow(e *shared.OutboxEntry) *OutboxEntryModel {
	return &OutboxEntryModel{
		ID: e.ID, EventID: e.EventID, EventType: e.EventType,
		AggregateID: e.AggregateID, AggregateType: e.AggregateType,
		Payload: e.Payload, Status: e.Status,
		RetryCount: e.RetryCount, MaxRetries: e.MaxRetries, LastError: e.LastError,
		NextRetryAt: e.NextRetryAt, ProcessedAt: e.ProcessedAt,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func (m *OutboxEntryModel) ToDomain() *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID: m.ID, EventID: m.EventID, EventType: m.EventType,
		AggregateID: m.AggregateID, AggregateType: m.AggregateType,
		Payload: m.Payload, Status: m.Status,
		RetryCount: m.RetryCount, MaxRetries: m.MaxRetries, LastError: m.LastError,
		NextRetryAt: m.NextRetryAt, ProcessedAt: m.ProcessedAt,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

// OutboxRows maps a batch for a single INSERT
func OutboxRows(entries []*shared.OutboxEntry) []*OutboxEntryModel {
	rows := make([]*OutboxEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = NewOutboxRow(e)
	}
	return rows
}

// OutboxEntries maps query results back to the domain
func OutboxEntries(rows []OutboxEntryModel) []*shared.OutboxEntry {
	out := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}
