package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *MockOutboxRepository) ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockOutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]*shared.OutboxEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

type placedEvent struct{ shared.BaseDomainEvent }

func deadEntry() *shared.OutboxEntry {
	e := shared.NewOutboxEntry(&placedEvent{shared.NewBaseDomainEvent("OrderPlaced", "Order", uuid.New())}, []byte(`{}`))
	for !e.IsDead() {
		e.MarkFailed("kafka: leader not available")
	}
	return e
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps paging and computes pages", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		repo.On("FindDead", ctx, 1, maxDeadPageSize).Return([]*shared.OutboxEntry{deadEntry(), deadEntry()}, int64(201), nil)

		res, err := NewOutboxService(repo, zap.NewNop()).GetDeadLetterEntries(ctx, OutboxFilter{PageSize: 500})
		require.NoError(t, err)
		assert.Len(t, res.Items, 2)
		assert.Equal(t, 3, res.TotalPages)
		assert.Equal(t, "DEAD", res.Items[0].Status)
		assert.Equal(t, 5, res.Items[0].RetryCount)
		repo.AssertExpectations(t)
	})

	t.Run("defaults the page size", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		repo.On("FindDead", ctx, 2, defaultDeadPageSize).Return([]*shared.OutboxEntry{}, int64(0), nil)

		res, err := NewOutboxService(repo, zap.NewNop()).GetDeadLetterEntries(ctx, OutboxFilter{Page: 2})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Zero(t, res.TotalPages)
	})
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("requeues a dead entry", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		entry := deadEntry()
		repo.On("FindByID", ctx, entry.ID).Return(entry, nil)
		repo.On("Update", ctx, entry).Return(nil)

		dto, err := NewOutboxService(repo, zap.NewNop()).RetryDeadEntry(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", dto.Status)
		assert.Zero(t, dto.RetryCount)
		assert.Empty(t, dto.LastError)
		repo.AssertExpectations(t)
	})

	t.Run("pending entry is a conflict", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		entry := deadEntry()
		require.NoError(t, entry.ResetForRetry())
		repo.On("FindByID", ctx, entry.ID).Return(entry, nil)

		_, err := NewOutboxService(repo, zap.NewNop()).RetryDeadEntry(ctx, entry.ID)
		assert.ErrorIs(t, err, shared.ErrConflict)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := NewOutboxService(repo, zap.NewNop()).GetEntry(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("drains the dead set", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		first := make([]*shared.OutboxEntry, retryAllBatchSize)
		for i := range first {
			first[i] = deadEntry()
		}
		second := []*shared.OutboxEntry{deadEntry(), deadEntry(), deadEntry()}
		repo.On("FindDead", ctx, 1, retryAllBatchSize).Return(first, int64(103), nil).Once()
		repo.On("FindDead", ctx, 1, retryAllBatchSize).Return(second, int64(3), nil).Once()
		repo.On("Update", ctx, mock.Anything).Return(nil)

		n, err := NewOutboxService(repo, zap.NewNop()).RetryAllDeadEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(103), n)
		repo.AssertNumberOfCalls(t, "Update", 103)
	})

	t.Run("stops when a full page cannot be requeued", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		stuck := make([]*shared.OutboxEntry, retryAllBatchSize)
		for i := range stuck {
			stuck[i] = deadEntry()
		}
		repo.On("FindDead", ctx, 1, retryAllBatchSize).Return(stuck, int64(100), nil)
		repo.On("Update", ctx, mock.Anything).Return(errors.New("connection reset"))

		n, err := NewOutboxService(repo, zap.NewNop()).RetryAllDeadEntries(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		repo.AssertNumberOfCalls(t, "FindDead", 1)
	})
}

func TestOutboxService_GetStats(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOutboxRepository)
	repo.On("CountByStatus", ctx).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 4,
		shared.OutboxStatusSent:    90,
		shared.OutboxStatusDead:    1,
	}, nil)

	stats, err := NewOutboxService(repo, zap.NewNop()).GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutboxStatsDTO{Pending: 4, Sent: 90, Dead: 1, Total: 95}, *stats)
}
