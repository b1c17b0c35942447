package shared

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the relay state of an outbox entry
type OutboxStatus string

// PENDING and FAILED entries are claimable; DEAD waits for an operator
const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// OutboxEntry is a serialized domain event written in the transaction that raised it
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an already serialized event as a PENDING entry
func NewOutboxEntry(ev DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       ev.EventID(),
		EventType:     ev.EventType(),
		AggregateID:   ev.AggregateID(),
		AggregateType: ev.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RetryBackoff is the wait before attempt n+1 after n failures: 1s, 2s, 4s ... capped at MaxBackoff
func RetryBackoff(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	if failures > 20 {
		return MaxBackoff
	}
	return min(DefaultBaseBackoff<<(failures-1), MaxBackoff)
}

func (e *OutboxEntry) transition(to OutboxStatus, from ...OutboxStatus) error {
	if len(from) > 0 && !slices.Contains(from, e.Status) {
		return NewConflictError("outbox entry cannot move from " + string(e.Status) + " to " + string(to))
	}
	e.Status = to
	e.UpdatedAt = time.Now()
	return nil
}

func (e *OutboxEntry) IsDead() bool { return e.Status == OutboxStatusDead }

// CanRetry reports whether a FAILED entry still has budget left
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing claims a PENDING or FAILED entry
func (e *OutboxEntry) MarkProcessing() error {
	return e.transition(OutboxStatusProcessing, OutboxStatusPending, OutboxStatusFailed)
}

func (e *OutboxEntry) MarkSent() {
	_ = e.transition(OutboxStatusSent)
	now := e.UpdatedAt
	e.ProcessedAt = &now
}

// MarkFailed records a failed delivery. The entry is rescheduled with RetryBackoff
// until MaxRetries failures, then it is DEAD.
func (e *OutboxEntry) MarkFailed(reason string) {
	e.RetryCount++
	e.LastError = reason
	e.NextRetryAt = nil
	if e.RetryCount >= e.MaxRetries {
		_ = e.transition(OutboxStatusDead)
		return
	}
	_ = e.transition(OutboxStatusFailed)
	next := e.UpdatedAt.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// ResetForRetry gives a DEAD entry a fresh retry budget
func (e *OutboxEntry) ResetForRetry() error {
	if err := e.transition(OutboxStatusPending, OutboxStatusDead); err != nil {
		return err
	}
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	return nil
}

// OutboxRepository stores outbox entries for the relay and the admin endpoints
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// ClaimBatch moves up to limit PENDING or due FAILED entries to PROCESSING and returns them.
	// Concurrent callers never receive the same entry.
	ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// FindByID returns ErrNotFound for unknown ids
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}

// OutboxEventSaver writes events inside the caller's transaction; tx is the persistence layer's handle
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, tx any, events ...DomainEvent) error
}
