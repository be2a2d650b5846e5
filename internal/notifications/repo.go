package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/store"
)

// ListQuery selects one page of a user's notifications, newest first.
type ListQuery struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Offset     int
	Limit      int
}

// Repository exposes persistence helpers for notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, query ListQuery) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns a notifications repository bound to the provided database.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormRepository) Get(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *gormRepository) List(ctx context.Context, query ListQuery) ([]models.Notification, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", query.UserID)
	if query.UnreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Notification
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(query.Offset).
		Limit(query.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) MarkRead(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": now}).Error
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Notification{}).Error
}

func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

type memoryRepository struct {
	rows *store.Table[models.Notification]
}

// NewMemoryRepository keeps notifications in process; used when no database
// is configured.
func NewMemoryRepository(rows *store.Table[models.Notification]) Repository {
	if rows == nil {
		rows = store.NewTable[models.Notification]()
	}
	return &memoryRepository{rows: rows}
}

func (r *memoryRepository) Create(_ context.Context, notification *models.Notification) error {
	if !r.rows.Insert(notification.ID, *notification) {
		return errors.New("notification id already exists")
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	n, ok := r.rows.Get(id)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func newestFirst(a, b models.Notification) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.String() > b.ID.String()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (r *memoryRepository) List(_ context.Context, query ListQuery) ([]models.Notification, int64, error) {
	rows := r.rows.Filter(func(n models.Notification) bool {
		return n.UserID == query.UserID && (!query.UnreadOnly || !n.IsRead)
	}, newestFirst)
	total := int64(len(rows))
	start := min(query.Offset, len(rows))
	end := len(rows)
	if query.Limit > 0 {
		end = min(start+query.Limit, len(rows))
	}
	return rows[start:end], total, nil
}

func (r *memoryRepository) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(r.rows.Filter(func(n models.Notification) bool {
		return n.UserID == userID && !n.IsRead
	}, nil))), nil
}

func (r *memoryRepository) MarkRead(_ context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.rows.Update(id, func(n *models.Notification) error {
		if !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (r *memoryRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	unread := r.rows.Filter(func(n models.Notification) bool { return n.UserID == userID && !n.IsRead }, nil)
	var updated int64
	for _, n := range unread {
		if err := r.MarkRead(ctx, n.ID, now); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (r *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.rows.Delete(id)
	return nil
}

func (r *memoryRepository) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	stale := r.rows.Filter(func(n models.Notification) bool { return n.IsRead && n.CreatedAt.Before(cutoff) }, nil)
	var deleted int64
	for _, n := range stale {
		if r.rows.Delete(n.ID) {
			deleted++
		}
	}
	return deleted, nil
}
