package event

import (
	"context"
	"errors"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessingLease bounds how long a claimed row may stay PROCESSING.
// After it a crashed relay's rows are claimed again, which can deliver an event twice.
const ProcessingLease = 5 * time.Minute

// GormOutboxRepository stores outbox entries in outbox_events
type GormOutboxRepository struct {
	db *gorm.DB
}

func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

func (r *GormOutboxRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.OutboxEntryModel{})
}

func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(models.OutboxRows(entries)).Error
}

// deliverable selects PENDING rows, FAILED rows whose retry is due, and PROCESSING rows past the lease
func deliverable(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			db.Session(&gorm.Session{NewDB: true}).
				Where("status = ?", shared.OutboxStatusPending).
				Or("status = ? AND next_retry_at <= ?", shared.OutboxStatusFailed, now).
				Or("status = ? AND updated_at < ?", shared.OutboxStatusProcessing, now.Add(-ProcessingLease)),
		)
	}
}

// ClaimBatch locks the oldest deliverable rows with FOR UPDATE SKIP LOCKED and flips them to
// PROCESSING in one transaction, so parallel relays split the queue instead of sharing it.
func (r *GormOutboxRepository) ClaimBatch(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []models.OutboxEntryModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Scopes(deliverable(now)).
			Order("created_at").
			Limit(limit).
			Find(&rows).Error
		if err != nil || len(rows) == 0 {
			return err
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for i := range rows {
			ids = append(ids, rows[i].ID)
			rows[i].Status, rows[i].UpdatedAt = shared.OutboxStatusProcessing, now
		}
		return tx.Model(&models.OutboxEntryModel{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"status": shared.OutboxStatusProcessing, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return models.OutboxEntries(rows), nil
}

func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.NewOutboxRow(entry)).Error
}

// DeleteSentBefore purges SENT rows processed before the cutoff
func (r *GormOutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&models.OutboxEntryModel{})
	return res.RowsAffected, res.Error
}

// FindDead pages DEAD rows, most recently failed first
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	dead := func(db *gorm.DB) *gorm.DB { return db.Where("status = ?", shared.OutboxStatusDead) }

	var total int64
	if err := r.table(ctx).Scopes(dead).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.OutboxEntryModel
	filter := shared.Filter{Page: page, PageSize: pageSize}
	if err := r.table(ctx).Scopes(dead).
		Order("updated_at DESC").
		Offset(filter.Offset()).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return models.OutboxEntries(rows), total, nil
}

func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var row models.OutboxEntryModel
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var groups []struct {
		Status shared.OutboxStatus
		N      int64
	}
	if err := r.table(ctx).Select("status, COUNT(*) AS n").Group("status").Scan(&groups).Error; err != nil {
		return nil, err
	}
	counts := make(map[shared.OutboxStatus]int64, len(groups))
	for _, g := range groups {
		counts[g.Status] = g.N
	}
	return counts, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
