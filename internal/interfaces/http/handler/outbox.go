package handler

import (
	"context"
	"time"

	"github.com/garmentflow/backend/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxAdmin inspects and requeues outbox entries.
type OutboxAdmin interface {
	GetDeadLetterEntries(ctx context.Context, filter event.OutboxFilter) (*event.OutboxListResult, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAllDeadEntries(ctx context.Context) (int64, error)
	GetStats(ctx context.Context) (*event.OutboxStatsDTO, error)
}

// OutboxHandler serves /admin/outbox. Only accounts allowed to operate the system reach it.
type OutboxHandler struct {
	BaseHandler
	admin OutboxAdmin
}

func NewOutboxHandler(admin OutboxAdmin) *OutboxHandler {
	return &OutboxHandler{admin: admin}
}

// GET /admin/outbox/dead
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.admin.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]OutboxEntryResponse, len(page.Items))
	for i := range page.Items {
		out[i] = newOutboxEntryResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, out, page.Total, page.Page, page.PageSize)
}

// GET /admin/outbox/:id
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	h.entryByID(c, h.admin.GetEntry)
}

// POST /admin/outbox/:id/retry puts a dead entry back in the relay queue.
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	h.entryByID(c, h.admin.RetryDeadEntry)
}

func (h *OutboxHandler) entryByID(c *gin.Context, fn func(context.Context, uuid.UUID) (*event.OutboxEntryDTO, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newOutboxEntryResponse(entry))
}

// POST /admin/outbox/dead/retry-all
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	n, err := h.admin.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"count": n})
}

// GET /admin/outbox/stats
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.admin.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

type OutboxEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"eventId"`
	EventType     string     `json:"eventType"`
	AggregateID   uuid.UUID  `json:"aggregateId"`
	AggregateType string     `json:"aggregateType"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retryCount"`
	MaxRetries    int        `json:"maxRetries"`
	LastError     string     `json:"lastError,omitempty"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func newOutboxEntryResponse(e *event.OutboxEntryDTO) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        e.Status,
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   utc(e.NextRetryAt),
		ProcessedAt:   utc(e.ProcessedAt),
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
