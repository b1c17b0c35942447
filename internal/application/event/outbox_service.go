// Package event holds the operator use cases of the event outbox.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDeadPageSize = 20
	maxDeadPageSize     = 100
	retryAllBatchSize   = 100
)

// OutboxService lists dead-lettered events and puts them back in the relay queue
type OutboxService struct {
	repo shared.OutboxRepository
	log  *zap.Logger
}

func NewOutboxService(repo shared.OutboxRepository, log *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, log: log.Named("outbox_admin")}
}

// OutboxEntryDTO is an entry without its payload
type OutboxEntryDTO struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Status        string
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OutboxFilter pages the dead-letter list; zero values take the defaults
type OutboxFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxListResult is one page of dead entries
type OutboxListResult = shared.Paginated[OutboxEntryDTO]

// OutboxStatsDTO counts entries per status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

func (f OutboxFilter) normalized() (page, size int) {
	page, size = max(f.Page, 1), f.PageSize
	switch {
	case size < 1:
		size = defaultDeadPageSize
	case size > maxDeadPageSize:
		size = maxDeadPageSize
	}
	return page, size
}

func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, filter OutboxFilter) (*OutboxListResult, error) {
	page, size := filter.normalized()
	entries, total, err := s.repo.FindDead(ctx, page, size)
	if err != nil {
		return nil, err
	}
	out := make([]OutboxEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toDTO(e))
	}
	result := shared.NewPaginated(out, total, page, size)
	return &result, nil
}

func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(entry)
	return &dto, nil
}

// RetryDeadEntry resets one DEAD entry to PENDING with a fresh retry budget.
// Entries in any other status are a conflict.
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.IsDead() {
		return nil, shared.NewConflictError("Only dead letter entries can be retried").
			WithDetail("status", string(entry.Status))
	}
	if err := s.requeue(ctx, entry); err != nil {
		return nil, err
	}
	dto := toDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues dead entries page by page until none are left
// or a page makes no progress, and returns how many were requeued.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	var requeued int64
	for {
		// requeued rows leave the dead set, so page 1 always holds the next batch
		batch, _, err := s.repo.FindDead(ctx, 1, retryAllBatchSize)
		if err != nil {
			return requeued, err
		}
		progress := 0
		for _, entry := range batch {
			if s.requeue(ctx, entry) == nil {
				progress++
			}
		}
		requeued += int64(progress)
		if progress == 0 || len(batch) < retryAllBatchSize {
			break
		}
	}
	s.log.Info("Dead letter entries requeued", zap.Int64("count", requeued))
	return requeued, nil
}

func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *OutboxService) requeue(ctx context.Context, entry *shared.OutboxEntry) error {
	if err := entry.ResetForRetry(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.log.Error("Requeue failed", zap.Stringer("id", entry.ID), zap.Error(err))
		return err
	}
	s.log.Info("Outbox entry requeued", zap.Stringer("id", entry.ID), zap.String("event_type", entry.EventType))
	return nil
}

func (s *OutboxService) load(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewNotFoundError("Outbox entry not found")
	}
	return entry, err
}

func toDTO(e *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
