package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

func newSQLiteRepository(t *testing.T) Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormRepository(conn)
}

func seedNotification(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	n := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "Order Updated",
		Message:   "Order is ready",
		Type:      enums.NotificationTypeOrderUpdate,
		Data:      []byte(`{"status":"READY"}`),
		CreatedAt: createdAt,
	}
	if err := repo.Create(context.Background(), &n); err != nil {
		t.Fatalf("create: %v", err)
	}
	return n
}

func TestGormRepositoryLifecycle(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	old := seedNotification(t, repo, user, base)
	recent := seedNotification(t, repo, user, base.Add(time.Hour))
	seedNotification(t, repo, uuid.New(), base)

	rows, total, err := repo.List(ctx, ListQuery{UserID: user, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 rows, got total=%d len=%d", total, len(rows))
	}
	if rows[0].ID != recent.ID {
		t.Fatalf("expected newest first")
	}

	if err := repo.MarkRead(ctx, old.ID, base.Add(2*time.Hour)); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, err := repo.Get(ctx, old.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsRead || got.ReadAt == nil {
		t.Fatalf("expected read notification, got %+v", got)
	}

	unread, err := repo.CountUnread(ctx, user)
	if err != nil || unread != 1 {
		t.Fatalf("expected 1 unread, got %d (%v)", unread, err)
	}

	deleted, err := repo.DeleteReadBefore(ctx, base.Add(30*time.Minute))
	if err != nil || deleted != 1 {
		t.Fatalf("expected 1 purged row, got %d (%v)", deleted, err)
	}

	updated, err := repo.MarkAllRead(ctx, user, base.Add(3*time.Hour))
	if err != nil || updated != 1 {
		t.Fatalf("expected 1 row marked, got %d (%v)", updated, err)
	}

	if err := repo.Delete(ctx, recent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	missing, err := repo.Get(ctx, recent.ID)
	if err != nil || missing != nil {
		t.Fatalf("expected nil after delete, got %+v (%v)", missing, err)
	}
}
